package live

import "encoding/json"

// Wire types for the BidiGenerateContent WebSocket protocol. Every frame
// in either direction is a JSON object with exactly one of the top-level
// fields set; the field name is the frame type.

// clientFrame is a message sent to the server.
type clientFrame struct {
	Setup         *setupPayload         `json:"setup,omitempty"`
	RealtimeInput *realtimeInputPayload `json:"realtimeInput,omitempty"`
	ClientContent *clientContentPayload `json:"clientContent,omitempty"`
}

// setupPayload is the first frame of every session. The server answers
// with setupComplete before any other traffic.
type setupPayload struct {
	Model             string         `json:"model"`
	GenerationConfig  *bidiGenConfig `json:"generationConfig,omitempty"`
	SystemInstruction *bidiContent   `json:"systemInstruction,omitempty"`

	// Empty objects enable transcription of the respective direction.
	InputAudioTranscription  *struct{} `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{} `json:"outputAudioTranscription,omitempty"`
}

type bidiGenConfig struct {
	ResponseModalities []string    `json:"responseModalities,omitempty"`
	Temperature        *float64    `json:"temperature,omitempty"`
	SpeechConfig       *speechConf `json:"speechConfig,omitempty"`
}

type speechConf struct {
	VoiceConfig *voiceConf `json:"voiceConfig,omitempty"`
}

type voiceConf struct {
	PrebuiltVoiceConfig *prebuiltVoice `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type bidiContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []bidiPart `json:"parts"`
}

type bidiPart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *bidiBlob `json:"inlineData,omitempty"`
}

type bidiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// realtimeInputPayload carries continuous media. Realtime audio is not
// turn-delimited; the server runs its own voice activity detection.
type realtimeInputPayload struct {
	Audio *bidiBlob `json:"audio,omitempty"`
	Text  string    `json:"text,omitempty"`
}

// clientContentPayload injects turn-structured content into the session,
// used for typed text alongside (or instead of) microphone audio.
type clientContentPayload struct {
	Turns        []bidiContent `json:"turns,omitempty"`
	TurnComplete bool          `json:"turnComplete"`
}

// serverFrame is a message received from the server.
type serverFrame struct {
	SetupComplete *json.RawMessage      `json:"setupComplete,omitempty"`
	ServerContent *serverContentPayload `json:"serverContent,omitempty"`
	GoAway        *goAwayPayload        `json:"goAway,omitempty"`
	UsageMetadata *bidiUsagePayload     `json:"usageMetadata,omitempty"`
}

type serverContentPayload struct {
	ModelTurn           *bidiContent       `json:"modelTurn,omitempty"`
	TurnComplete        bool               `json:"turnComplete,omitempty"`
	Interrupted         bool               `json:"interrupted,omitempty"`
	GenerationComplete  bool               `json:"generationComplete,omitempty"`
	InputTranscription  *transcriptPayload `json:"inputTranscription,omitempty"`
	OutputTranscription *transcriptPayload `json:"outputTranscription,omitempty"`
}

type transcriptPayload struct {
	Text     string `json:"text"`
	Finished bool   `json:"finished,omitempty"`
}

// goAwayPayload warns that the server will close the connection soon.
type goAwayPayload struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

type bidiUsagePayload struct {
	PromptTokenCount   int `json:"promptTokenCount,omitempty"`
	ResponseTokenCount int `json:"responseTokenCount,omitempty"`
	TotalTokenCount    int `json:"totalTokenCount,omitempty"`
}
