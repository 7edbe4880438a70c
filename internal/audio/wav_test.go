package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAV_RoundTrip(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768, 42}

	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	if len(data) != 44+len(samples)*2 {
		t.Errorf("Expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}

	decoded, rate, channels, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if channels != 1 {
		t.Errorf("Expected 1 channel, got %d", channels)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, samples[i], decoded[i])
		}
	}
}

func TestEncodeWAV_Invalid(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("Expected error for empty samples")
	}
	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestDecodeWAV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", []byte("RIFF")},
		{"wrong magic", bytes.Repeat([]byte("x"), 64)},
		{"no data chunk", append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 32)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

// buildWAV writes an arbitrary-format 16-bit PCM WAV for decoder tests.
func buildWAV(t *testing.T, samples []int16, sampleRate, channels int) []byte {
	t.Helper()

	var pcm bytes.Buffer
	if err := binary.Write(&pcm, binary.LittleEndian, samples); err != nil {
		t.Fatalf("Failed to write samples: %v", err)
	}

	var buf bytes.Buffer
	dataSize := uint32(pcm.Len())
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm.Bytes())

	return buf.Bytes()
}

func TestDecodeWAV_Stereo(t *testing.T) {
	// Interleaved L/R frames.
	samples := []int16{100, 200, 300, 400, 500, 600}
	data := buildWAV(t, samples, 44100, 2)

	decoded, rate, channels, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if rate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", rate)
	}
	if channels != 2 {
		t.Errorf("Expected 2 channels, got %d", channels)
	}
	if len(decoded) != len(samples) {
		t.Errorf("Expected %d samples, got %d", len(samples), len(decoded))
	}
}

func TestDecodeWAV_SkipsExtraChunks(t *testing.T) {
	base := buildWAV(t, []int16{1, 2, 3, 4}, 16000, 1)

	// Splice a LIST chunk between fmt and data.
	var buf bytes.Buffer
	buf.Write(base[:36])
	buf.WriteString("LIST")
	binary.Write(&buf, binary.LittleEndian, uint32(4))
	buf.WriteString("INFO")
	buf.Write(base[36:])
	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(data)-8))

	decoded, rate, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if len(decoded) != 4 {
		t.Errorf("Expected 4 samples, got %d", len(decoded))
	}
}
