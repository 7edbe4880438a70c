package tts

import (
	"context"

	"go.uber.org/zap"

	"github.com/audiotutor/server/domain/repositories"
)

// MockTTS returns a fixed byte pattern instead of audio, for tests and
// keyless local runs.
type MockTTS struct {
	Audio  []byte
	Err    error
	logger *zap.Logger
}

var _ repositories.SpeechSynthesizer = (*MockTTS)(nil)

func NewMockTTS(logger *zap.Logger) *MockTTS {
	return &MockTTS{
		Audio:  []byte("mock-mp3-audio"),
		logger: logger,
	}
}

func (m *MockTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.logger.Debug("Mock synthesis", zap.Int("textLength", len(text)))
	return m.Audio, nil
}
