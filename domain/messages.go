package domain

// PCMClip is a decoded linear PCM buffer ready for recognition. Produced by
// the transcoder, owned by the current pipeline invocation, discarded after
// the recognizer consumed it.
type PCMClip struct {
	Samples    []int16
	SampleRate int
	Channels   int
	BitDepth   int
}

// Recognition target format: mono 16kHz 16-bit linear PCM.
const (
	RecognitionSampleRate = 16000
	RecognitionChannels   = 1
	RecognitionBitDepth   = 16
)

// Duration returns the clip length in seconds.
func (c PCMClip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Bytes returns the samples as little-endian 16-bit PCM, the layout the
// recognition service expects.
func (c PCMClip) Bytes() []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// Role is the sender of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single entry in a chat-completion request.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Outbound websocket event payloads.

// InfoPayload carries informational status strings ("message" event).
type InfoPayload struct {
	Info string `json:"info"`
}

// TranscriptionPayload carries the recognized user utterance.
type TranscriptionPayload struct {
	Text string `json:"text"`
}

// LLMResponsePayload carries the assistant reply text.
type LLMResponsePayload struct {
	Text string `json:"text"`
}

// TTSAudioPayload carries the synthesized reply as base64 MP3.
type TTSAudioPayload struct {
	Audio string `json:"audio"`
}

// ErrorPayload carries a stage-scoped, user-visible error message.
type ErrorPayload struct {
	Message string `json:"message"`
}
