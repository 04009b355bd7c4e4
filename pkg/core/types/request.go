package types

// GenerateRequest is a request for a model response over the current
// conversation history.
type GenerateRequest struct {
	Model    string    `json:"model"`
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`

	MaxTokens     int      `json:"max_tokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`

	// ResponseModalities requests non-text output from capable models,
	// e.g. []string{"TEXT", "IMAGE"} for image generation.
	ResponseModalities []string `json:"response_modalities,omitempty"`
}

// MessageResponse is a complete (non-streamed) model response.
type MessageResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"` // "message"
	Role       string         `json:"role"` // "model"
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason StopReason     `json:"stop_reason,omitempty"`
	Usage      Usage          `json:"usage"`
}

// TextContent concatenates all text blocks of the response.
func (r *MessageResponse) TextContent() string {
	var text string
	for _, block := range r.Content {
		if tb, ok := block.(TextBlock); ok {
			text += tb.Text
		}
	}
	return text
}

// Images returns all image blocks of the response.
func (r *MessageResponse) Images() []ImageBlock {
	var images []ImageBlock
	for _, block := range r.Content {
		if ib, ok := block.(ImageBlock); ok {
			images = append(images, ib)
		}
	}
	return images
}
