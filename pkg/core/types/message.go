package types

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message represents a single message in a chat session.
type Message struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"` // "user" or "model"
	Content   []ContentBlock `json:"content"`
	CreatedAt time.Time      `json:"created_at"`

	// StopReason is set on model messages once the response is complete.
	StopReason StopReason `json:"stop_reason,omitempty"`

	// Failed marks a model message whose stream ended in an error.
	// Any text received before the failure is preserved in Content.
	Failed bool `json:"failed,omitempty"`

	// Usage is set on model messages when the backend reports token counts.
	Usage *Usage `json:"usage,omitempty"`
}

// UnmarshalJSON handles the polymorphic Content field.
func (m *Message) UnmarshalJSON(data []byte) error {
	type rawMessage struct {
		ID         string          `json:"id"`
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content"`
		CreatedAt  time.Time       `json:"created_at"`
		StopReason StopReason      `json:"stop_reason"`
		Failed     bool            `json:"failed"`
		Usage      *Usage          `json:"usage"`
	}

	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.ID = raw.ID
	m.Role = raw.Role
	m.CreatedAt = raw.CreatedAt
	m.StopReason = raw.StopReason
	m.Failed = raw.Failed
	m.Usage = raw.Usage

	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		m.Content = nil
		return nil
	}

	blocks, err := UnmarshalContentBlocks(raw.Content)
	if err != nil {
		return err
	}
	m.Content = blocks
	return nil
}

// TextContent concatenates all text blocks of the message.
func (m *Message) TextContent() string {
	var text string
	for _, block := range m.Content {
		switch b := block.(type) {
		case TextBlock:
			text += b.Text
		case *TextBlock:
			text += b.Text
		}
	}
	return text
}

// Images returns all image blocks of the message.
func (m *Message) Images() []ImageBlock {
	var images []ImageBlock
	for _, block := range m.Content {
		switch b := block.(type) {
		case ImageBlock:
			images = append(images, b)
		case *ImageBlock:
			images = append(images, *b)
		}
	}
	return images
}

// StopReason indicates why a model response ended.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonMaxTokens StopReason = "max_tokens"
	StopReasonSafety    StopReason = "safety"
	StopReasonCancelled StopReason = "cancelled"
)
