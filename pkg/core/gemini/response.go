package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

// geminiResponse is the Gemini API response format.
type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata,omitempty"`
	ModelVersion  string            `json:"modelVersion,omitempty"`
}

// geminiCandidate represents a single candidate response.
type geminiCandidate struct {
	Content       geminiContent  `json:"content"`
	FinishReason  string         `json:"finishReason"`
	Index         int            `json:"index"`
	SafetyRatings []safetyRating `json:"safetyRatings,omitempty"`
}

// geminiUsage contains token usage information.
type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount,omitempty"`
}

// safetyRating represents a safety assessment.
type safetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
	Blocked     bool   `json:"blocked"`
}

// parseResponse parses a Gemini response body into a MessageResponse.
func parseResponse(body []byte, model string) (*types.MessageResponse, error) {
	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	candidate := geminiResp.Candidates[0]
	content := parseContentParts(candidate.Content.Parts)

	usage := types.Usage{}
	if geminiResp.UsageMetadata != nil {
		usage.InputTokens = geminiResp.UsageMetadata.PromptTokenCount
		usage.OutputTokens = geminiResp.UsageMetadata.CandidatesTokenCount
		usage.ThinkingTokens = geminiResp.UsageMetadata.ThoughtsTokenCount
		usage.TotalTokens = geminiResp.UsageMetadata.TotalTokenCount
	}

	return &types.MessageResponse{
		ID:         fmt.Sprintf("msg_%s", stripModelPrefix(model)), // Gemini doesn't return IDs
		Type:       "message",
		Role:       types.RoleModel,
		Model:      stripModelPrefix(model),
		Content:    content,
		StopReason: mapFinishReason(candidate.FinishReason),
		Usage:      usage,
	}, nil
}

// parseContentParts converts Gemini parts to content blocks.
// Inline data with an image MIME type becomes an ImageBlock; this is how
// image-output models return generated images.
func parseContentParts(parts []geminiPart) []types.ContentBlock {
	content := make([]types.ContentBlock, 0, len(parts))

	for _, part := range parts {
		if part.Text != "" {
			content = append(content, types.Text(part.Text))
		}

		if part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "image/") {
			content = append(content, types.InlineImage(part.InlineData.MIMEType, part.InlineData.Data))
		}
	}

	return content
}

// mapFinishReason converts a Gemini finish reason to a stop reason.
func mapFinishReason(reason string) types.StopReason {
	switch reason {
	case "STOP":
		return types.StopReasonEndTurn
	case "MAX_TOKENS":
		return types.StopReasonMaxTokens
	case "SAFETY", "PROHIBITED_CONTENT", "IMAGE_SAFETY":
		return types.StopReasonSafety
	default:
		return types.StopReasonEndTurn
	}
}
