package types

// Usage contains token counts for a model response.
type Usage struct {
	InputTokens    int `json:"input_tokens"`
	OutputTokens   int `json:"output_tokens"`
	ThinkingTokens int `json:"thinking_tokens,omitempty"`
	TotalTokens    int `json:"total_tokens"`
}

// Add combines two Usage objects (for per-session aggregation).
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:    u.InputTokens + other.InputTokens,
		OutputTokens:   u.OutputTokens + other.OutputTokens,
		ThinkingTokens: u.ThinkingTokens + other.ThinkingTokens,
		TotalTokens:    u.TotalTokens + other.TotalTokens,
	}
}

// IsEmpty returns true if the usage has no tokens.
func (u Usage) IsEmpty() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 && u.TotalTokens == 0
}
