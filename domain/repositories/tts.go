package repositories

import "context"

// SpeechSynthesizer abstracts text-to-speech services. Synthesize returns a
// complete encoded MP3 buffer; a backend failure yields
// domain.ErrSynthesis and must not block delivery of already-computed turn
// results.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
