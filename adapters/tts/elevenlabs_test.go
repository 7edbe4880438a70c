package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/audiotutor/server/domain"
)

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Test without API key
	os.Unsetenv("ELEVEN_LABS_API_KEY")
	config := NewElevenLabsConfigFromEnv()
	_, err := NewElevenLabsTTS(config, logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	// Test with API key
	os.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVEN_LABS_API_KEY")

	config = NewElevenLabsConfigFromEnv()
	tts, err := NewElevenLabsTTS(config, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}
	if tts.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.voiceID)
	}
	if tts.outputFormat != defaultOutputFormat {
		t.Errorf("Expected default output format '%s', got '%s'", defaultOutputFormat, tts.outputFormat)
	}
}

func TestElevenLabsTTS_Synthesize(t *testing.T) {
	mp3 := []byte("fake-mp3-bytes")
	var gotAccept, gotKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotKey = r.Header.Get("xi-api-key")
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(mp3)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-key", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	audio, err := tts.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != string(mp3) {
		t.Errorf("Expected audio bytes %q, got %q", mp3, audio)
	}
	if gotAccept != "audio/mpeg" {
		t.Errorf("Expected Accept header 'audio/mpeg', got '%s'", gotAccept)
	}
	if gotKey != "test-key" {
		t.Errorf("Expected xi-api-key 'test-key', got '%s'", gotKey)
	}
}

func TestElevenLabsTTS_SynthesizeEmptyText(t *testing.T) {
	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-key"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	_, err = tts.Synthesize(context.Background(), "   ")
	if err == nil {
		t.Fatal("Expected error for empty text")
	}
	if domain.KindOf(err) != domain.ErrSynthesis {
		t.Errorf("Expected synthesis_error, got %s", domain.KindOf(err))
	}
}

func TestElevenLabsTTS_SynthesizeBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":"rate limited"}`))
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-key", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	_, err = tts.Synthesize(context.Background(), "hello")
	if err == nil {
		t.Fatal("Expected error for backend failure")
	}
	if domain.KindOf(err) != domain.ErrSynthesis {
		t.Errorf("Expected synthesis_error, got %s", domain.KindOf(err))
	}
}

func TestValidateElevenLabsConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ElevenLabsConfig
		wantErr bool
	}{
		{"valid", ElevenLabsConfig{APIKey: "k"}, false},
		{"missing key", ElevenLabsConfig{}, true},
		{"bad stability", ElevenLabsConfig{APIKey: "k", Stability: 1.5}, true},
		{"bad clarity", ElevenLabsConfig{APIKey: "k", Clarity: -0.2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElevenLabsConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateElevenLabsConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
