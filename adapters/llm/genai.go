package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/audiotutor/server/domain"
	"github.com/audiotutor/server/domain/repositories"
)

const (
	defaultAPIBaseURL = "https://genai.hkbu.edu.hk/api/v0/rest"
	defaultAPIVersion = "2024-12-01-preview"
	defaultModel      = "gpt-4"
	defaultMaxTokens  = 150
	defaultTopP       = 1.0
	defaultTimeout    = 30 * time.Second
)

// GenAIConfig holds configuration for the chat-completion client.
// Required fields:
// - APIKey: the platform API key
// Optional fields with defaults:
// - APIBaseURL: deployment API root (default: the HKBU GenAI platform)
// - APIVersion: api-version query value (default: "2024-12-01-preview")
// - Model: deployment identifier (default: "gpt-4")
// - MaxTokens: completion token budget (default: 150)
// - TopP: nucleus sampling value (default: 1.0)
// - Timeout: per-request HTTP timeout (default: 30s)
type GenAIConfig struct {
	APIKey     string
	APIBaseURL string
	APIVersion string
	Model      string
	MaxTokens  int
	TopP       float64
	Timeout    time.Duration
}

// NewGenAIConfigFromEnv reads the client configuration from environment
// variables.
func NewGenAIConfigFromEnv() GenAIConfig {
	config := GenAIConfig{
		APIKey:     os.Getenv("GENAI_API_KEY"),
		APIBaseURL: os.Getenv("GENAI_API_BASE_URL"),
		APIVersion: os.Getenv("GENAI_API_VERSION"),
		Model:      os.Getenv("GENAI_MODEL"),
		TopP:       defaultTopP,
	}

	if maxTokensStr := os.Getenv("GENAI_MAX_TOKENS"); maxTokensStr != "" {
		if maxTokens, err := strconv.Atoi(maxTokensStr); err == nil && maxTokens > 0 {
			config.MaxTokens = maxTokens
		}
	}

	if topPStr := os.Getenv("GENAI_TOP_P"); topPStr != "" {
		if topP, err := strconv.ParseFloat(topPStr, 64); err == nil && topP > 0 && topP <= 1 {
			config.TopP = topP
		}
	}

	return config
}

// GenAIClient implements DialogueClient against a deployment-style
// chat-completion endpoint, non-streaming mode only. Stateless across calls;
// safe for concurrent sessions.
type GenAIClient struct {
	apiKey     string
	apiBaseURL string
	apiVersion string
	model      string
	maxTokens  int
	topP       float64
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.DialogueClient = (*GenAIClient)(nil)

type completionRequest struct {
	Messages  []domain.ChatMessage `json:"messages"`
	MaxTokens int                  `json:"max_tokens"`
	TopP      float64              `json:"top_p"`
	Stream    bool                 `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewGenAIClient creates a chat-completion client. The API key is required;
// there is deliberately no baked-in fallback key.
func NewGenAIClient(config GenAIConfig, logger *zap.Logger) (*GenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("chat completion API key is required")
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	apiVersion := config.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	model := config.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	topP := config.TopP
	if topP == 0 {
		topP = defaultTopP
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &GenAIClient{
		apiKey:     config.APIKey,
		apiBaseURL: apiBaseURL,
		apiVersion: apiVersion,
		model:      model,
		maxTokens:  maxTokens,
		topP:       topP,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Complete returns the top completion's text.
func (c *GenAIClient) Complete(ctx context.Context, messages []domain.ChatMessage, opts repositories.CompletionOptions) (string, error) {
	raw, err := c.CompleteRaw(ctx, messages, opts)
	if err != nil {
		return "", err
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", domain.NewTurnError(domain.ErrDialogueService, "failed to parse completion response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", domain.NewTurnError(domain.ErrDialogueService, "completion response held no choices", nil)
	}

	return parsed.Choices[0].Message.Content, nil
}

// CompleteRaw performs the request and returns the raw result JSON. A
// non-success upstream status is returned as a dialogue_service_error
// carrying the status code and response body, never as a panic or a lost
// detail.
func (c *GenAIClient) CompleteRaw(ctx context.Context, messages []domain.ChatMessage, opts repositories.CompletionOptions) (json.RawMessage, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	topP := opts.TopP
	if topP == 0 {
		topP = c.topP
	}
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}

	body, err := json.Marshal(completionRequest{
		Messages:  messages,
		MaxTokens: maxTokens,
		TopP:      topP,
		Stream:    false,
	})
	if err != nil {
		return nil, domain.NewTurnError(domain.ErrDialogueService, "failed to marshal completion request", err)
	}

	url := fmt.Sprintf("%s/deployments/%s/chat/completions?api-version=%s", c.apiBaseURL, model, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewTurnError(domain.ErrDialogueService, "failed to create completion request", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Sending chat completion request",
		zap.String("model", model),
		zap.Int("maxTokens", maxTokens),
		zap.Int("messages", len(messages)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A timeout is indistinguishable from an unreachable service for
		// the caller; both are service errors for this stage.
		return nil, domain.NewTurnError(domain.ErrDialogueService, "completion request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTurnError(domain.ErrDialogueService, "failed to read completion response", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Chat completion returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)))
		return nil, domain.NewDialogueServiceError(resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}
