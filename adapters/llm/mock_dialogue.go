package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/audiotutor/server/domain"
	"github.com/audiotutor/server/domain/repositories"
)

// MockDialogueClient echoes the last user message, for tests and keyless
// local runs.
type MockDialogueClient struct {
	Reply string
	Err   error
}

var _ repositories.DialogueClient = (*MockDialogueClient)(nil)

func NewMockDialogueClient() *MockDialogueClient {
	return &MockDialogueClient{}
}

func (m *MockDialogueClient) Complete(ctx context.Context, messages []domain.ChatMessage, opts repositories.CompletionOptions) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return fmt.Sprintf("You said: %s", messages[i].Content), nil
		}
	}
	return "Hello! How can I help you today?", nil
}

func (m *MockDialogueClient) CompleteRaw(ctx context.Context, messages []domain.ChatMessage, opts repositories.CompletionOptions) (json.RawMessage, error) {
	reply, err := m.Complete(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": reply}},
		},
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}
