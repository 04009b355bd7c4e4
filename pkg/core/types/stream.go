package types

// StreamEvent is a typed event produced while decoding a streamed
// generation response.
type StreamEvent interface {
	streamEventType() string
}

// MessageStartEvent opens a streamed response. It carries the message
// shell before any content has arrived.
type MessageStartEvent struct {
	Message MessageResponse
}

func (e MessageStartEvent) streamEventType() string { return "message_start" }

// ContentBlockStartEvent announces a new content block at Index.
// Inline images arrive whole, as the block itself.
type ContentBlockStartEvent struct {
	Index int
	Block ContentBlock
}

func (e ContentBlockStartEvent) streamEventType() string { return "content_block_start" }

// TextDeltaEvent carries an incremental text fragment for the block
// at Index.
type TextDeltaEvent struct {
	Index int
	Text  string
}

func (e TextDeltaEvent) streamEventType() string { return "text_delta" }

// MessageDeltaEvent closes a successful stream with the stop reason
// and final token usage.
type MessageDeltaEvent struct {
	StopReason StopReason
	Usage      Usage
}

func (e MessageDeltaEvent) streamEventType() string { return "message_delta" }
