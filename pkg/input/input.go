// Package input converts local files into inline content blocks
// suitable for a generation request.
package input

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

// DefaultMaxBytes caps attachment size. Inline payloads travel base64
// encoded inside the request body, so large files are rejected up front.
const DefaultMaxBytes = 20 << 20 // 20 MiB

var (
	// ErrEmptyFile is returned for zero-byte attachments.
	ErrEmptyFile = errors.New("attachment is empty")

	// ErrTooLarge is returned when an attachment exceeds the size budget.
	ErrTooLarge = errors.New("attachment exceeds size budget")

	// ErrUnsupportedType is returned for media types the API cannot
	// accept inline.
	ErrUnsupportedType = errors.New("unsupported attachment type")
)

// extension table checked before content sniffing. Sniffing cannot
// distinguish e.g. PDF-in-text or WAV variants reliably.
var mimeByExtension = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/plain",
	".csv":  "text/csv",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// Attachment is a file converted to an inline payload.
type Attachment struct {
	Path      string
	MediaType string
	Size      int64

	// Data is the base64-encoded file content.
	Data string
}

// Block returns the content block representation of the attachment:
// image, audio, or document depending on media type.
func (a Attachment) Block() types.ContentBlock {
	switch {
	case strings.HasPrefix(a.MediaType, "image/"):
		return types.InlineImage(a.MediaType, a.Data)
	case strings.HasPrefix(a.MediaType, "audio/"):
		return types.AudioBlock{
			Type: "audio",
			Source: types.AudioSource{
				Type:      "base64",
				MediaType: a.MediaType,
				Data:      a.Data,
			},
		}
	default:
		return types.DocumentBlock{
			Type: "document",
			Source: types.DocumentSource{
				Type:      "base64",
				MediaType: a.MediaType,
				Data:      a.Data,
			},
			Filename: filepath.Base(a.Path),
		}
	}
}

// LoadAttachment reads a file and converts it to an inline payload,
// enforcing maxBytes (DefaultMaxBytes when maxBytes <= 0).
func LoadAttachment(path string, maxBytes int64) (Attachment, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("stat attachment: %w", err)
	}
	if info.Size() == 0 {
		return Attachment{}, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	if info.Size() > maxBytes {
		return Attachment{}, fmt.Errorf("%w: %s is %d bytes (budget %d)", ErrTooLarge, path, info.Size(), maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("read attachment: %w", err)
	}

	mediaType, err := detectMediaType(path, data)
	if err != nil {
		return Attachment{}, err
	}

	return Attachment{
		Path:      path,
		MediaType: mediaType,
		Size:      info.Size(),
		Data:      base64.StdEncoding.EncodeToString(data),
	}, nil
}

func detectMediaType(path string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := mimeByExtension[ext]; ok {
		return mt, nil
	}

	sniffed := http.DetectContentType(data)
	// Strip parameters like "; charset=utf-8".
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = strings.TrimSpace(sniffed[:i])
	}
	switch {
	case strings.HasPrefix(sniffed, "image/"),
		strings.HasPrefix(sniffed, "audio/"),
		sniffed == "application/pdf",
		strings.HasPrefix(sniffed, "text/"):
		return sniffed, nil
	}
	return "", fmt.Errorf("%w: %s detected as %s", ErrUnsupportedType, path, sniffed)
}
