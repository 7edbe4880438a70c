package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/audiotutor/server/domain"
	"github.com/audiotutor/server/domain/repositories"
)

// HistoryEntry is one conversation entry as submitted by the browser.
// Content may be a plain string or a list of content parts, so it is
// decoded loosely and flattened before the entry is forwarded upstream.
type HistoryEntry struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// flattenContent reduces a loosely typed content value to plain text.
// List-valued content joins the text of each part with a single space.
func flattenContent(content interface{}) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				if text, ok := m["text"].(string); ok {
					parts = append(parts, text)
				} else {
					parts = append(parts, "")
				}
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(v)
	}
}

// PreprocessHistory normalizes a browser-supplied conversation history
// into the message list the dialogue backend accepts. Entries with empty
// content are dropped. System and user entries pass through unchanged.
// The first assistant entry is dropped and every later assistant entry
// is relabeled as a system message, preserving order throughout.
func PreprocessHistory(history []HistoryEntry) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history))
	assistantSeen := false
	for _, entry := range history {
		content := flattenContent(entry.Content)
		if content == "" {
			continue
		}
		switch entry.Role {
		case string(domain.RoleSystem), string(domain.RoleUser):
			messages = append(messages, domain.ChatMessage{
				Role:    domain.Role(entry.Role),
				Content: content,
			})
		case string(domain.RoleAssistant):
			if !assistantSeen {
				assistantSeen = true
				continue
			}
			messages = append(messages, domain.ChatMessage{
				Role:    domain.RoleSystem,
				Content: content,
			})
		}
	}
	return messages
}

// ChatService serves the text chat path: it preprocesses the submitted
// history and forwards it to the dialogue backend, returning the raw
// completion response for the HTTP handler to relay verbatim.
type ChatService struct {
	dialogue repositories.DialogueClient
	logger   *zap.Logger
}

func NewChatService(dialogue repositories.DialogueClient, logger *zap.Logger) *ChatService {
	return &ChatService{dialogue: dialogue, logger: logger}
}

// Chat forwards the preprocessed history to the dialogue backend. The
// returned raw JSON is the upstream response body unchanged.
func (s *ChatService) Chat(ctx context.Context, history []HistoryEntry, opts repositories.CompletionOptions) (json.RawMessage, error) {
	messages := PreprocessHistory(history)
	s.logger.Debug("forwarding chat history",
		zap.Int("submitted", len(history)),
		zap.Int("forwarded", len(messages)))
	raw, err := s.dialogue.CompleteRaw(ctx, messages, opts)
	if err != nil {
		s.logger.Warn("chat completion failed", zap.Error(err))
		return nil, err
	}
	return raw, nil
}
