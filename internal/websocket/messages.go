package websocket

import (
	"encoding/base64"
	"encoding/json"

	"github.com/audiotutor/server/domain"
)

// Inbound event names.
const (
	EventUserAudio = "user_audio"
	EventTestTTS   = "test_tts"
)

// Envelope is the JSON frame exchanged over text websocket messages. Binary
// frames bypass the envelope and carry the audio payload directly.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// TestTTSData is the optional payload of a test_tts event.
type TestTTSData struct {
	Text string `json:"text"`
}

type audioObject struct {
	Audio *string `json:"audio"`
}

// DecodeAudioPayload extracts the uploaded audio bytes from a user_audio
// data field. Browsers send either a bare base64 string or an object with a
// base64 "audio" member; both decode to the same bytes as a binary frame
// carrying the payload directly. Failures are decode errors scoped to the
// current event.
func DecodeAudioPayload(data json.RawMessage) ([]byte, error) {
	if len(data) == 0 {
		return nil, domain.NewTurnError(domain.ErrDecode, "user_audio event carried no data", nil)
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		return decodeBase64Audio(encoded)
	}

	var obj audioObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, domain.NewTurnError(domain.ErrDecode, "unsupported audio payload format", err)
	}
	if obj.Audio == nil {
		return nil, domain.NewTurnError(domain.ErrDecode, "audio field missing from payload", nil)
	}
	return decodeBase64Audio(*obj.Audio)
}

func decodeBase64Audio(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, domain.NewTurnError(domain.ErrDecode, "audio payload is empty", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.NewTurnError(domain.ErrDecode, "audio payload is not valid base64", err)
	}
	return raw, nil
}
