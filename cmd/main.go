package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/audiotutor/server/adapters/llm"
	"github.com/audiotutor/server/adapters/stt"
	"github.com/audiotutor/server/adapters/token"
	"github.com/audiotutor/server/adapters/tts"
	"github.com/audiotutor/server/domain/repositories"
	"github.com/audiotutor/server/internal/api"
	"github.com/audiotutor/server/internal/config"
	"github.com/audiotutor/server/internal/websocket"
	"github.com/audiotutor/server/usecase"
)

func main() {
	// Bootstrap logger; replaced once the environment is known.
	logger, _ := zap.NewDevelopment()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if cfg.IsProduction() {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	recognizer, dialogue, synthesizer := buildAdapters(cfg, logger)

	// Initialize usecase services
	turnService := usecase.NewTurnService(recognizer, dialogue, synthesizer, logger)
	chatService := usecase.NewChatService(dialogue, logger)

	// Initialize WebSocket hub
	hub := websocket.NewHub(turnService, logger)
	go hub.Run()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, hub, chatService, buildTokenService(logger), cfg.BasePath, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(cfg.Host + ":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("basePath", cfg.BasePath),
		zap.Bool("mockServices", cfg.MockServices))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildAdapters wires the external service clients, or their mocks when
// MOCK_SERVICES is set. Missing credentials abort startup rather than
// falling back silently.
func buildAdapters(cfg *config.Config, logger *zap.Logger) (
	repositories.SpeechRecognizer,
	repositories.DialogueClient,
	repositories.SpeechSynthesizer,
) {
	if cfg.MockServices {
		logger.Warn("Running with mock adapters, no external services will be called")
		return stt.NewMockSpeechRecognizer(logger),
			llm.NewMockDialogueClient(),
			tts.NewMockTTS(logger)
	}

	dialogue, err := llm.NewGenAIClient(llm.NewGenAIConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize dialogue client", zap.Error(err))
	}

	ttsConfig := tts.NewElevenLabsConfigFromEnv()
	synthesizer, err := tts.NewElevenLabsTTS(ttsConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech synthesizer", zap.Error(err))
	}

	recognizer := stt.NewGoogleSpeechRecognizer(cfg.SpeechLanguage, logger)

	return recognizer, dialogue, synthesizer
}

// buildTokenService wires the speech token endpoint when credentials are
// present. The endpoint reports unconfigured otherwise.
func buildTokenService(logger *zap.Logger) *token.AliCloudTokenService {
	keyID := os.Getenv("ALICLOUD_ACCESS_KEY_ID")
	keySecret := os.Getenv("ALICLOUD_ACCESS_KEY_SECRET")
	if keyID == "" || keySecret == "" {
		logger.Info("AliCloud credentials not set, speech token endpoint disabled")
		return nil
	}

	tokens, err := token.NewAliCloudTokenService(keyID, keySecret, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech token service", zap.Error(err))
	}
	return tokens
}
