// Manual websocket client for exercising a running server without a
// browser. It uploads an audio file, prints every event the server emits,
// and saves the synthesized reply next to the input.
//
// Usage:
//
//	go run ./cmd/wsclient -addr localhost:8080 -audio recording.webm
//	go run ./cmd/wsclient -addr localhost:8080 -tts "testing one two three"
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server host:port")
	basePath := flag.String("base-path", "", "route prefix the server mounts under")
	audioPath := flag.String("audio", "", "audio file to upload (WebM or WAV)")
	ttsText := flag.String("tts", "", "send a test_tts event with this text instead of audio")
	replyPath := flag.String("reply", "reply.mp3", "where to save the synthesized reply")
	flag.Parse()

	if *audioPath == "" && *ttsText == "" {
		log.Fatal("either -audio or -tts is required")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: *basePath + "/api/streaming-avatar/ws"}
	log.Printf("connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})
	go readEvents(c, *replyPath, done)

	if *audioPath != "" {
		payload, err := os.ReadFile(*audioPath)
		if err != nil {
			log.Fatal("read audio:", err)
		}
		log.Printf("uploading %s (%d bytes)", *audioPath, len(payload))
		if err := c.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			log.Fatal("write audio:", err)
		}
	} else {
		frame, _ := json.Marshal(map[string]interface{}{
			"event": "test_tts",
			"data":  map[string]string{"text": *ttsText},
		})
		if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Fatal("write test_tts:", err)
		}
	}

	select {
	case <-done:
		return
	case <-interrupt:
		log.Println("interrupt")
		// Cleanly close the connection by sending a close message and then
		// waiting (with timeout) for the server to close the connection.
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("write close:", err)
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return
	}
}

func readEvents(c *websocket.Conn, replyPath string, done chan struct{}) {
	defer close(done)
	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			log.Println("read:", err)
			return
		}

		var ev envelope
		if err := json.Unmarshal(frame, &ev); err != nil {
			log.Printf("unparseable frame: %s", frame)
			continue
		}

		switch ev.Event {
		case "tts_audio":
			var data struct {
				Audio string `json:"audio"`
			}
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				log.Println("tts_audio decode:", err)
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(data.Audio)
			if err != nil {
				log.Println("tts_audio base64:", err)
				continue
			}
			if err := os.WriteFile(replyPath, audio, 0o644); err != nil {
				log.Println("save reply:", err)
				continue
			}
			log.Printf("tts_audio: saved %d bytes to %s", len(audio), replyPath)
			return
		case "error":
			log.Printf("error: %s", ev.Data)
			return
		default:
			log.Printf("%s: %s", ev.Event, ev.Data)
		}
	}
}
