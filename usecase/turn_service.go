package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/audiotutor/server/domain"
	"github.com/audiotutor/server/domain/repositories"
	"github.com/audiotutor/server/internal/audio"
	"github.com/audiotutor/server/internal/metrics"
)

// Outbound websocket event names.
const (
	EventMessage       = "message"
	EventTranscription = "transcription"
	EventLLMResponse   = "llm_response"
	EventTTSAudio      = "tts_audio"
	EventError         = "error"
)

// systemPreamble anchors every audio-path completion so the assistant
// stays on task regardless of what was transcribed.
const systemPreamble = "You are a helpful educational assistant. Keep responses concise and friendly, suitable for students."

const defaultTestSentence = "Hello! This is a test of the text to speech system."

// Emitter delivers outbound events to one websocket session. Payloads
// are the structs from the domain package.
type Emitter interface {
	Emit(event string, payload interface{})
}

// TurnService runs one audio turn through the full pipeline: transcode
// the uploaded container to PCM, recognize speech, complete a reply and
// synthesize it. Each stage emits its result as soon as it is available
// so the browser renders the transcript before the reply and the reply
// before the audio.
type TurnService struct {
	recognizer  repositories.SpeechRecognizer
	dialogue    repositories.DialogueClient
	synthesizer repositories.SpeechSynthesizer
	logger      *zap.Logger
}

func NewTurnService(
	recognizer repositories.SpeechRecognizer,
	dialogue repositories.DialogueClient,
	synthesizer repositories.SpeechSynthesizer,
	logger *zap.Logger,
) *TurnService {
	return &TurnService{
		recognizer:  recognizer,
		dialogue:    dialogue,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// HandleAudio processes one uploaded audio payload. A stage failure
// emits an error event naming the stage and stops the pipeline, except
// that a synthesis failure still leaves the already emitted transcript
// and reply with the client. The returned error is the stage failure,
// for logging by the caller.
func (s *TurnService) HandleAudio(ctx context.Context, payload []byte, emit Emitter) error {
	metrics.TurnsTotal.Inc()

	start := time.Now()
	clip, err := audio.Transcode(payload)
	metrics.ObserveStage(metrics.StageTranscode, start)
	if err != nil {
		return s.fail(emit, metrics.StageTranscode, err)
	}
	s.logger.Debug("audio transcoded",
		zap.Float64("durationSeconds", clip.Duration()),
		zap.Int("sampleRate", clip.SampleRate))

	threshold := audio.CalibrateThreshold(clip)
	if audio.IsSilence(clip, threshold) {
		return s.fail(emit, metrics.StageRecognize,
			domain.NewTurnError(domain.ErrUnintelligible, "audio below ambient noise threshold", nil))
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	start = time.Now()
	transcript, err := s.recognizer.Recognize(ctx, clip)
	metrics.ObserveStage(metrics.StageRecognize, start)
	if err != nil {
		return s.fail(emit, metrics.StageRecognize, err)
	}
	emit.Emit(EventTranscription, domain.TranscriptionPayload{Text: transcript})

	if ctx.Err() != nil {
		return ctx.Err()
	}

	start = time.Now()
	reply, err := s.dialogue.Complete(ctx, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: systemPreamble},
		{Role: domain.RoleUser, Content: transcript},
	}, repositories.CompletionOptions{})
	metrics.ObserveStage(metrics.StageDialogue, start)
	if err != nil {
		return s.fail(emit, metrics.StageDialogue, err)
	}
	emit.Emit(EventLLMResponse, domain.LLMResponsePayload{Text: reply})

	if ctx.Err() != nil {
		return ctx.Err()
	}

	start = time.Now()
	speech, err := s.synthesizer.Synthesize(ctx, reply)
	metrics.ObserveStage(metrics.StageSynthesize, start)
	if err != nil {
		return s.fail(emit, metrics.StageSynthesize, err)
	}
	emit.Emit(EventTTSAudio, domain.TTSAudioPayload{
		Audio: base64.StdEncoding.EncodeToString(speech),
	})

	metrics.TurnsCompleted.Inc()
	return nil
}

// HandleTestTTS synthesizes a fixed or caller-supplied sentence so the
// speaker path can be exercised without a microphone.
func (s *TurnService) HandleTestTTS(ctx context.Context, text string, emit Emitter) error {
	if text == "" {
		text = defaultTestSentence
	}
	start := time.Now()
	speech, err := s.synthesizer.Synthesize(ctx, text)
	metrics.ObserveStage(metrics.StageSynthesize, start)
	if err != nil {
		return s.fail(emit, metrics.StageSynthesize, err)
	}
	emit.Emit(EventTTSAudio, domain.TTSAudioPayload{
		Audio: base64.StdEncoding.EncodeToString(speech),
	})
	emit.Emit(EventMessage, domain.InfoPayload{Info: fmt.Sprintf("TTS generated for: %s", text)})
	return nil
}

func (s *TurnService) fail(emit Emitter, stage string, err error) error {
	metrics.StageErrors.WithLabelValues(stage).Inc()
	s.logger.Warn("pipeline stage failed", zap.String("stage", stage), zap.Error(err))
	emit.Emit(EventError, domain.ErrorPayload{Message: userMessage(err)})
	return err
}

// userMessage maps a pipeline failure to the message shown in the
// browser. Dialogue failures surface the upstream status and body so a
// misconfigured key is diagnosable from the client alone.
func userMessage(err error) string {
	switch domain.KindOf(err) {
	case domain.ErrDecode:
		return fmt.Sprintf("Invalid audio payload: %s", detailOf(err))
	case domain.ErrTranscode:
		return fmt.Sprintf("Audio format conversion failed: %s", detailOf(err))
	case domain.ErrUnintelligible:
		return "Could not understand audio. Please speak clearly."
	case domain.ErrRecognitionService:
		return fmt.Sprintf("Speech recognition error: %s", detailOf(err))
	case domain.ErrDialogueService:
		return fmt.Sprintf("Chat service error: %s", err.Error())
	case domain.ErrSynthesis:
		return "Failed to generate TTS audio"
	default:
		return "An unexpected error occurred while processing your audio"
	}
}

func detailOf(err error) string {
	var te *domain.TurnError
	if errors.As(err, &te) {
		return te.Detail
	}
	return err.Error()
}
