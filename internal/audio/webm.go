package audio

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/at-wat/ebml-go"
	"github.com/at-wat/ebml-go/webm"
	"github.com/hraban/opus"

	"github.com/audiotutor/server/domain"
)

// Opus always decodes at 48kHz regardless of the stream's original rate.
const opusDecodeRate = 48000

// maxOpusFrameSamples is the largest Opus frame: 120ms at 48kHz, per channel.
const maxOpusFrameSamples = 5760

type webmDocument struct {
	Header  webm.EBMLHeader `ebml:"EBML"`
	Segment webm.Segment    `ebml:"Segment,size=unknown"`
}

// decodeWebMOpus parses a WebM/Matroska container and decodes its Opus audio
// track to interleaved PCM-16.
func decodeWebMOpus(data []byte) ([]int16, int, int, error) {
	var doc webmDocument
	err := ebml.Unmarshal(bytes.NewReader(data), &doc, ebml.WithIgnoreUnknown(true))
	// MediaRecorder emits unknown-size segments that end at EOF; a truncated
	// final block is fine as long as the track metadata parsed.
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, 0, 0, domain.NewTurnError(domain.ErrTranscode, "failed to parse WebM container", err)
	}

	track, err := findOpusTrack(doc.Segment.Tracks.TrackEntry)
	if err != nil {
		return nil, 0, 0, err
	}

	channels := 1
	if track.Audio != nil && track.Audio.Channels > 1 {
		channels = 2
	}

	dec, err := opus.NewDecoder(opusDecodeRate, channels)
	if err != nil {
		return nil, 0, 0, domain.NewTurnError(domain.ErrTranscode, "failed to create opus decoder", err)
	}

	var samples []int16
	frame := make([]int16, maxOpusFrameSamples*channels)
	for _, cluster := range doc.Segment.Cluster {
		for _, block := range cluster.SimpleBlock {
			if block.TrackNumber != track.TrackNumber {
				continue
			}
			for _, packet := range block.Data {
				if len(packet) == 0 {
					continue
				}
				n, err := dec.Decode(packet, frame)
				if err != nil {
					// A single corrupt packet is dropped, not fatal; the
					// recognizer copes with small gaps.
					continue
				}
				samples = append(samples, frame[:n*channels]...)
			}
		}
	}

	if len(samples) == 0 {
		return nil, 0, 0, domain.NewTurnError(domain.ErrTranscode, "WebM container held no decodable audio", nil)
	}

	return samples, opusDecodeRate, channels, nil
}

func findOpusTrack(entries []webm.TrackEntry) (*webm.TrackEntry, error) {
	const trackTypeAudio = 2

	for i := range entries {
		t := &entries[i]
		if t.TrackType != trackTypeAudio {
			continue
		}
		if strings.HasPrefix(t.CodecID, "A_OPUS") {
			return t, nil
		}
		return nil, domain.NewTurnError(domain.ErrTranscode, "unsupported audio codec "+t.CodecID, nil)
	}
	return nil, domain.NewTurnError(domain.ErrTranscode, "WebM container has no audio track", nil)
}
