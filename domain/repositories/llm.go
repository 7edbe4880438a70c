package repositories

import (
	"context"
	"encoding/json"

	"github.com/audiotutor/server/domain"
)

// CompletionOptions are per-request generation parameters. Zero values fall
// back to the client's configured defaults.
type CompletionOptions struct {
	Model     string
	MaxTokens int
	TopP      float64
	// APIKey overrides the client's configured key, for the text-chat path
	// where the caller supplies its own key.
	APIKey string
}

// DialogueClient abstracts the external chat-completion capability.
// Non-streaming only; each call is one independent turn.
type DialogueClient interface {
	// Complete returns the top completion's text. A non-success upstream
	// status yields a domain.ErrDialogueService carrying status and body.
	Complete(ctx context.Context, messages []domain.ChatMessage, opts CompletionOptions) (string, error)
	// CompleteRaw returns the raw completion result JSON for callers that
	// pass it through unchanged.
	CompleteRaw(ctx context.Context, messages []domain.ChatMessage, opts CompletionOptions) (json.RawMessage, error)
}
