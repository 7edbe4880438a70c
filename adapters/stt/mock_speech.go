package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/audiotutor/server/domain"
	"github.com/audiotutor/server/domain/repositories"
)

// MockSpeechRecognizer returns canned transcripts for tests and keyless
// local runs.
type MockSpeechRecognizer struct {
	Transcript string
	Err        error
	logger     *zap.Logger
}

var _ repositories.SpeechRecognizer = (*MockSpeechRecognizer)(nil)

func NewMockSpeechRecognizer(logger *zap.Logger) *MockSpeechRecognizer {
	return &MockSpeechRecognizer{
		Transcript: "hello, can you help me study?",
		logger:     logger,
	}
}

func (m *MockSpeechRecognizer) Recognize(ctx context.Context, clip domain.PCMClip) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.logger.Debug("Mock recognition", zap.Float64("durationSeconds", clip.Duration()))
	return m.Transcript, nil
}
