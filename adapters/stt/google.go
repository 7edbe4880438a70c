package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/audiotutor/server/domain"
	"github.com/audiotutor/server/domain/repositories"
)

const defaultLanguage = "en-US"

// GoogleSpeechRecognizer implements SpeechRecognizer using Google Cloud
// Speech-to-Text. It holds no mutable state; the API client is created per
// call so concurrent sessions never share a connection.
type GoogleSpeechRecognizer struct {
	language string
	logger   *zap.Logger
}

var _ repositories.SpeechRecognizer = (*GoogleSpeechRecognizer)(nil)

// NewGoogleSpeechRecognizer creates a recognizer for the given locale.
// An empty language falls back to US English.
func NewGoogleSpeechRecognizer(language string, logger *zap.Logger) *GoogleSpeechRecognizer {
	if language == "" {
		language = defaultLanguage
	}
	return &GoogleSpeechRecognizer{
		language: language,
		logger:   logger,
	}
}

// Recognize submits a mono 16kHz clip and returns the best transcript.
//
// Failure kinds stay distinct: an empty result set means speech was present
// but not decodable (unintelligible, ask the user to repeat); a transport or
// RPC failure means the recognition service itself broke.
func (g *GoogleSpeechRecognizer) Recognize(ctx context.Context, clip domain.PCMClip) (string, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", domain.NewTurnError(domain.ErrRecognitionService, "failed to create speech client", err)
	}
	defer client.Close()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(clip.SampleRate),
			LanguageCode:    g.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: clip.Bytes()},
		},
	})
	if err != nil {
		return "", domain.NewTurnError(domain.ErrRecognitionService, "recognize request failed", err)
	}

	var transcript strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if transcript.Len() > 0 {
			transcript.WriteString(" ")
		}
		transcript.WriteString(result.Alternatives[0].Transcript)
	}

	text := strings.TrimSpace(transcript.String())
	if text == "" {
		return "", domain.NewTurnError(domain.ErrUnintelligible, "no speech detected in audio", nil)
	}

	g.logger.Debug("Recognition completed",
		zap.String("language", g.language),
		zap.Int("samples", len(clip.Samples)),
		zap.String("transcript", text))

	return text, nil
}
