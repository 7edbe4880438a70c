package audio

import (
	"bytes"

	"github.com/audiotutor/server/domain"
)

var (
	ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
	riffMagic = []byte("RIFF")
)

// Transcode converts a compressed audio clip into mono 16kHz 16-bit linear
// PCM. Browsers send WebM/Opus from MediaRecorder; WAV is accepted as a
// related container. Any parse or codec failure yields a transcode_error
// scoped to the current event.
func Transcode(data []byte) (domain.PCMClip, error) {
	if len(data) == 0 {
		return domain.PCMClip{}, domain.NewTurnError(domain.ErrTranscode, "empty audio payload", nil)
	}

	var (
		samples  []int16
		rate     int
		channels int
		err      error
	)
	switch {
	case bytes.HasPrefix(data, ebmlMagic):
		samples, rate, channels, err = decodeWebMOpus(data)
	case bytes.HasPrefix(data, riffMagic):
		samples, rate, channels, err = DecodeWAV(data)
		if err != nil {
			err = domain.NewTurnError(domain.ErrTranscode, "failed to decode WAV container", err)
		}
	default:
		return domain.PCMClip{}, domain.NewTurnError(domain.ErrTranscode, "unrecognized audio container", nil)
	}
	if err != nil {
		return domain.PCMClip{}, err
	}
	if len(samples) == 0 {
		return domain.PCMClip{}, domain.NewTurnError(domain.ErrTranscode, "container held no audio samples", nil)
	}

	mono := Downmix(samples, channels)
	mono = Resample(mono, rate, domain.RecognitionSampleRate)

	return domain.PCMClip{
		Samples:    mono,
		SampleRate: domain.RecognitionSampleRate,
		Channels:   domain.RecognitionChannels,
		BitDepth:   domain.RecognitionBitDepth,
	}, nil
}
