package api

import (
	"github.com/audiotutor/server/usecase"
)

// ChatRequest is the body of POST /api/chatbot/chat. The API key and model
// options are optional and fall back to the server defaults.
type ChatRequest struct {
	ChatHistory []usecase.HistoryEntry `json:"chat_history"`
	APIKey      string                 `json:"api_key,omitempty"`
	ModelName   string                 `json:"model_name,omitempty"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	TopP        float64                `json:"top_p,omitempty"`
}

// GreetingResponse is the body of the liveness probes.
type GreetingResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the JSON error surface of the REST endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SpeechTokenResponse is the body of GET /api/streaming-avatar/token.
type SpeechTokenResponse struct {
	Token      string `json:"token"`
	ExpireTime int64  `json:"expireTime"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Sessions int    `json:"sessions"`
}
