package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/audiotutor/server/adapters/token"
	"github.com/audiotutor/server/domain"
	"github.com/audiotutor/server/domain/repositories"
	"github.com/audiotutor/server/internal/websocket"
	"github.com/audiotutor/server/usecase"
)

// InitRoutes initializes all API routes under the configured base path.
// tokens may be nil when no speech token credentials are configured.
func InitRoutes(e *echo.Echo, hub *websocket.Hub, chat *usecase.ChatService, tokens *token.AliCloudTokenService, basePath string, logger *zap.Logger) {
	base := e.Group(basePath)

	// Health check
	base.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:   "ok",
			Service:  "audiotutor-server",
			Sessions: hub.SessionCount(),
		})
	})

	base.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Presence probes the browser hits before opening a session.
	chatbot := base.Group("/api/chatbot")
	chatbot.GET("/a", func(c echo.Context) error {
		return c.JSON(http.StatusOK, GreetingResponse{Message: "Hello from Module chatbot"})
	})
	chatbot.POST("/chat", func(c echo.Context) error {
		return handleChat(c, chat, logger)
	})

	avatar := base.Group("/api/streaming-avatar")
	avatar.GET("/a", func(c echo.Context) error {
		return c.JSON(http.StatusOK, GreetingResponse{Message: "Hello from Module streaming_avatar"})
	})
	avatar.GET("/token", func(c echo.Context) error {
		return handleSpeechToken(c, tokens, logger)
	})

	// WebSocket endpoint
	avatar.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	})
}

// handleChat forwards a text conversation to the dialogue backend and relays
// the upstream response body verbatim. Upstream failures keep HTTP 200 and
// surface their status and body in the error field, so callers inspect the
// object rather than the transport status.
func handleChat(c echo.Context, chat *usecase.ChatService, logger *zap.Logger) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		logger.Warn("Failed to bind chat request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	opts := repositories.CompletionOptions{
		Model:     req.ModelName,
		MaxTokens: req.MaxTokens,
		TopP:      req.TopP,
		APIKey:    req.APIKey,
	}

	raw, err := chat.Chat(c.Request().Context(), req.ChatHistory, opts)
	if err != nil {
		var te *domain.TurnError
		if errors.As(err, &te) && te.Kind == domain.ErrDialogueService {
			return c.JSON(http.StatusOK, ErrorResponse{Error: te.Error()})
		}
		logger.Error("Chat completion failed", zap.Error(err))
		return c.JSON(http.StatusOK, ErrorResponse{Error: "chat completion failed"})
	}

	return c.JSONBlob(http.StatusOK, raw)
}

// handleSpeechToken issues a short-lived token for browser-side speech
// services.
func handleSpeechToken(c echo.Context, tokens *token.AliCloudTokenService, logger *zap.Logger) error {
	if tokens == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "speech token service not configured"})
	}

	value, expireTime, err := tokens.FetchToken(c.Request().Context())
	if err != nil {
		logger.Error("Failed to fetch speech token", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "failed to fetch speech token"})
	}

	return c.JSON(http.StatusOK, SpeechTokenResponse{
		Token:      value,
		ExpireTime: expireTime,
	})
}
