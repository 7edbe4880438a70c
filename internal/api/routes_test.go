package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/audiotutor/server/adapters/llm"
	"github.com/audiotutor/server/adapters/stt"
	"github.com/audiotutor/server/adapters/tts"
	"github.com/audiotutor/server/domain"
	"github.com/audiotutor/server/internal/websocket"
	"github.com/audiotutor/server/usecase"
)

func newTestRouter(t *testing.T, dialogue *llm.MockDialogueClient, basePath string) *echo.Echo {
	t.Helper()
	logger := zaptest.NewLogger(t)

	turns := usecase.NewTurnService(
		stt.NewMockSpeechRecognizer(logger),
		dialogue,
		tts.NewMockTTS(logger),
		logger,
	)
	hub := websocket.NewHub(turns, logger)
	go hub.Run()

	chat := usecase.NewChatService(dialogue, logger)

	e := echo.New()
	InitRoutes(e, hub, chat, nil, basePath, logger)
	return e
}

func TestSpeechTokenUnconfigured(t *testing.T) {
	e := newTestRouter(t, llm.NewMockDialogueClient(), "")

	req := httptest.NewRequest(http.MethodGet, "/api/streaming-avatar/token", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGreetingEndpoints(t *testing.T) {
	e := newTestRouter(t, llm.NewMockDialogueClient(), "")

	tests := []struct {
		path string
		want string
	}{
		{path: "/api/chatbot/a", want: "Hello from Module chatbot"},
		{path: "/api/streaming-avatar/a", want: "Hello from Module streaming_avatar"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
				t.Errorf("Content-Type = %q, want JSON", ct)
			}
			var greeting GreetingResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &greeting); err != nil {
				t.Fatalf("invalid greeting body %q: %v", rec.Body.String(), err)
			}
			if greeting.Message != tt.want {
				t.Errorf("message = %q, want %q", greeting.Message, tt.want)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestRouter(t, llm.NewMockDialogueClient(), "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("invalid health body: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
}

func TestChatRelaysUpstreamBody(t *testing.T) {
	e := newTestRouter(t, llm.NewMockDialogueClient(), "")

	body := `{"chat_history":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid chat body: %v", err)
	}
	if len(parsed.Choices) != 1 || parsed.Choices[0].Message.Content != "You said: hello" {
		t.Errorf("unexpected chat body: %s", rec.Body.String())
	}
}

func TestChatSurfacesUpstreamFailure(t *testing.T) {
	dialogue := llm.NewMockDialogueClient()
	dialogue.Err = domain.NewDialogueServiceError(401, `{"error":"invalid api key"}`)
	e := newTestRouter(t, dialogue, "")

	body := `{"chat_history":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// Transport status stays 200; the failure lives in the error object.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if !strings.Contains(resp.Error, "[ERROR 401]") || !strings.Contains(resp.Error, "invalid api key") {
		t.Errorf("error = %q, want upstream status and body", resp.Error)
	}
}

func TestChatAcceptsEmptyHistory(t *testing.T) {
	e := newTestRouter(t, llm.NewMockDialogueClient(), "")

	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/chat", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
}

func TestBasePathPrefixesAllRoutes(t *testing.T) {
	e := newTestRouter(t, llm.NewMockDialogueClient(), "/tutor")

	req := httptest.NewRequest(http.MethodGet, "/tutor/api/chatbot/a", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("prefixed status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chatbot/a", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unprefixed status = %d, want 404", rec.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	e := newTestRouter(t, llm.NewMockDialogueClient(), "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "audiotutor_pipeline_turns_total") {
		t.Errorf("metrics body missing pipeline counter")
	}
}
