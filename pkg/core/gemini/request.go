package gemini

import (
	"strings"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

// geminiRequest is the Gemini API request format.
// Note: Gemini API uses camelCase for JSON field names.
type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

// geminiContent represents a content object in Gemini format.
type geminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

// geminiPart represents a single part within content.
type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlob     `json:"inlineData,omitempty"`
	FileData   *geminiFileData `json:"fileData,omitempty"`
}

// geminiBlob represents inline binary data.
type geminiBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

// geminiFileData represents a file reference.
type geminiFileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

// geminiGenConfig contains generation configuration.
type geminiGenConfig struct {
	Temperature        *float64 `json:"temperature,omitempty"`
	TopP               *float64 `json:"topP,omitempty"`
	TopK               *int     `json:"topK,omitempty"`
	MaxOutputTokens    *int     `json:"maxOutputTokens,omitempty"`
	StopSequences      []string `json:"stopSequences,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

// buildRequest converts a GenerateRequest to the Gemini wire format.
func buildRequest(req *types.GenerateRequest) *geminiRequest {
	geminiReq := &geminiRequest{}

	if req.System != "" {
		geminiReq.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.System}},
		}
	}

	geminiReq.Contents = translateMessages(req.Messages)
	geminiReq.GenerationConfig = buildGenerationConfig(req)

	return geminiReq
}

// translateMessages converts messages to Gemini contents.
// Failed model messages are skipped so a retried turn does not replay
// an aborted response as history.
func translateMessages(messages []types.Message) []geminiContent {
	contents := make([]geminiContent, 0, len(messages))

	for _, msg := range messages {
		if msg.Failed {
			continue
		}
		parts := translateContentBlocks(msg.Content)
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, geminiContent{
			Role:  msg.Role,
			Parts: parts,
		})
	}

	return contents
}

// translateContentBlocks converts content blocks to Gemini parts.
func translateContentBlocks(blocks []types.ContentBlock) []geminiPart {
	parts := make([]geminiPart, 0, len(blocks))

	for _, block := range blocks {
		switch b := block.(type) {
		case types.TextBlock:
			if b.Text == "" {
				continue
			}
			parts = append(parts, geminiPart{Text: b.Text})

		case types.ImageBlock:
			if b.Source.Type == "url" {
				parts = append(parts, geminiPart{
					FileData: &geminiFileData{
						MIMEType: b.Source.MediaType,
						FileURI:  b.Source.URL,
					},
				})
			} else {
				parts = append(parts, geminiPart{
					InlineData: &geminiBlob{
						MIMEType: b.Source.MediaType,
						Data:     b.Source.Data,
					},
				})
			}

		case types.AudioBlock:
			parts = append(parts, geminiPart{
				InlineData: &geminiBlob{
					MIMEType: b.Source.MediaType,
					Data:     b.Source.Data,
				},
			})

		case types.DocumentBlock:
			parts = append(parts, geminiPart{
				InlineData: &geminiBlob{
					MIMEType: b.Source.MediaType,
					Data:     b.Source.Data,
				},
			})
		}
	}

	return parts
}

// buildGenerationConfig creates the generation config from a request.
func buildGenerationConfig(req *types.GenerateRequest) *geminiGenConfig {
	config := &geminiGenConfig{
		Temperature:        req.Temperature,
		TopP:               req.TopP,
		TopK:               req.TopK,
		ResponseModalities: req.ResponseModalities,
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	config.MaxOutputTokens = &maxTokens

	if len(req.StopSequences) > 0 {
		config.StopSequences = req.StopSequences
	}

	return config
}

// stripModelPrefix removes the "models/" prefix from a model string.
// "models/gemini-2.5-flash" -> "gemini-2.5-flash"
func stripModelPrefix(model string) string {
	return strings.TrimPrefix(model, "models/")
}
