package live

import (
	"encoding/json"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

// Event is a typed event emitted by Session.Events().
type Event interface {
	liveEventType() string
}

// SetupCompleteEvent signals that the server accepted the session setup.
// It is always the first event of a session.
type SetupCompleteEvent struct{}

func (e SetupCompleteEvent) liveEventType() string { return "setup_complete" }

// AudioChunkEvent carries decoded model speech.
// Data is 16-bit little-endian PCM in the session's output format.
type AudioChunkEvent struct {
	Data     []byte
	MimeType string
}

func (e AudioChunkEvent) liveEventType() string { return "audio_chunk" }

// TranscriptDirection distinguishes user speech from model speech.
type TranscriptDirection string

const (
	// TranscriptInput is the transcription of the user's microphone audio.
	TranscriptInput TranscriptDirection = "input"
	// TranscriptOutput is the transcription of the model's spoken reply.
	TranscriptOutput TranscriptDirection = "output"
)

// TranscriptEvent carries an incremental transcription fragment.
type TranscriptEvent struct {
	Direction TranscriptDirection
	Text      string
	Finished  bool
}

func (e TranscriptEvent) liveEventType() string { return "transcript" }

// InterruptedEvent signals that the user spoke over the model. Any
// buffered but unplayed audio from the current turn is stale and should
// be flushed immediately.
type InterruptedEvent struct{}

func (e InterruptedEvent) liveEventType() string { return "interrupted" }

// GenerationCompleteEvent signals the model finished generating the
// current reply. Audio delivery may still be in flight.
type GenerationCompleteEvent struct{}

func (e GenerationCompleteEvent) liveEventType() string { return "generation_complete" }

// TurnCompleteEvent marks the end of a model turn.
type TurnCompleteEvent struct{}

func (e TurnCompleteEvent) liveEventType() string { return "turn_complete" }

// GoAwayEvent warns that the server will drop the connection shortly.
// TimeLeft is the server-reported duration string, e.g. "10s".
type GoAwayEvent struct {
	TimeLeft string
}

func (e GoAwayEvent) liveEventType() string { return "go_away" }

// UsageEvent reports cumulative token usage for the session.
type UsageEvent struct {
	Usage types.Usage
}

func (e UsageEvent) liveEventType() string { return "usage" }

// UnknownEvent preserves frames this client does not recognize.
type UnknownEvent struct {
	Raw json.RawMessage
}

func (e UnknownEvent) liveEventType() string { return "unknown" }
