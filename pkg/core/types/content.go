package types

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is the interface for all message content.
// INPUT:  text, image, audio, document
// OUTPUT: text, image
type ContentBlock interface {
	BlockType() string
}

// TextBlock represents text content.
type TextBlock struct {
	Type string `json:"type"` // "text"
	Text string `json:"text"`
}

func (t TextBlock) BlockType() string { return "text" }

// Text returns a TextBlock containing s.
func Text(s string) TextBlock {
	return TextBlock{Type: "text", Text: s}
}

// InlineImage returns an ImageBlock holding base64-encoded image data.
func InlineImage(mediaType, data string) ImageBlock {
	return ImageBlock{
		Type: "image",
		Source: ImageSource{
			Type:      "base64",
			MediaType: mediaType,
			Data:      data,
		},
	}
}

// ImageBlock represents image content, either attached by the user or
// generated by the model.
type ImageBlock struct {
	Type   string      `json:"type"` // "image"
	Source ImageSource `json:"source"`
}

func (t ImageBlock) BlockType() string { return "image" }

// ImageSource contains the image data or reference.
type ImageSource struct {
	Type      string `json:"type"`                 // "base64" or "url"
	MediaType string `json:"media_type,omitempty"` // "image/png", etc.
	Data      string `json:"data,omitempty"`       // base64 data
	URL       string `json:"url,omitempty"`        // URL reference
}

// AudioBlock represents audio content.
type AudioBlock struct {
	Type       string      `json:"type"` // "audio"
	Source     AudioSource `json:"source"`
	Transcript *string     `json:"transcript,omitempty"`
}

func (t AudioBlock) BlockType() string { return "audio" }

// AudioSource contains the audio data.
type AudioSource struct {
	Type      string `json:"type"`       // "base64"
	MediaType string `json:"media_type"` // "audio/wav", "audio/pcm", etc.
	Data      string `json:"data"`
}

// DocumentBlock represents an attached document (PDF, plain text, etc.).
type DocumentBlock struct {
	Type     string         `json:"type"` // "document"
	Source   DocumentSource `json:"source"`
	Filename string         `json:"filename,omitempty"`
}

func (t DocumentBlock) BlockType() string { return "document" }

// DocumentSource contains the document data.
type DocumentSource struct {
	Type      string `json:"type"`       // "base64"
	MediaType string `json:"media_type"` // "application/pdf"
	Data      string `json:"data"`
}

// UnmarshalContentBlock deserializes a content block from JSON.
func UnmarshalContentBlock(data []byte) (ContentBlock, error) {
	var typeHolder struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &typeHolder); err != nil {
		return nil, err
	}

	switch typeHolder.Type {
	case "text":
		var block TextBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "image":
		var block ImageBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "audio":
		var block AudioBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	case "document":
		var block DocumentBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil

	default:
		// Tolerate unknown block types so stored sessions survive format additions.
		return TextBlock{Type: typeHolder.Type, Text: fmt.Sprintf("[unknown block type: %s]", typeHolder.Type)}, nil
	}
}

// UnmarshalContentBlocks deserializes a slice of content blocks from JSON.
func UnmarshalContentBlocks(data []byte) ([]ContentBlock, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	blocks := make([]ContentBlock, len(raw))
	for i, r := range raw {
		block, err := UnmarshalContentBlock(r)
		if err != nil {
			return nil, err
		}
		blocks[i] = block
	}
	return blocks, nil
}

// MarshalContentBlocks serializes content blocks to a JSON array.
func MarshalContentBlocks(blocks []ContentBlock) ([]byte, error) {
	raw := make([]json.RawMessage, len(blocks))
	for i, block := range blocks {
		b, err := json.Marshal(block)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return json.Marshal(raw)
}
