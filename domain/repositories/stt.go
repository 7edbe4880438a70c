package repositories

import (
	"context"

	"github.com/audiotutor/server/domain"
)

// SpeechRecognizer abstracts speech recognition services.
//
// Recognize returns the transcript for a mono 16kHz 16-bit clip. Failures
// are typed: domain.ErrUnintelligible when speech was present but no
// confident transcript could be produced, domain.ErrRecognitionService when
// the external service failed or was unreachable. The two must stay
// distinguishable for the caller.
type SpeechRecognizer interface {
	Recognize(ctx context.Context, clip domain.PCMClip) (string, error)
}
