package gemini

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"encoding/json"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

// eventStream implements EventStream for Gemini SSE responses.
type eventStream struct {
	reader      *bufio.Reader
	closer      io.Closer
	model       string
	err         error
	accumulator streamAccumulator
	started     bool
	finished    bool
	pending     []types.StreamEvent // Queue for buffered events
}

// streamAccumulator accumulates streamed data.
type streamAccumulator struct {
	textStarted    bool
	textIndex      int
	nextIndex      int
	finishReason   string
	inputTokens    int
	outputTokens   int
	thinkingTokens int
	totalTokens    int
}

// streamChunk represents a streaming chunk from Gemini.
type streamChunk struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata,omitempty"`
}

// newEventStream creates a new event stream from an HTTP response body.
func newEventStream(body io.ReadCloser, model string) *eventStream {
	return &eventStream{
		reader: bufio.NewReader(body),
		closer: body,
		model:  model,
	}
}

// Next returns the next event from the stream.
// Returns nil, io.EOF when the stream is complete.
func (s *eventStream) Next() (types.StreamEvent, error) {
	if s.err != nil {
		return nil, s.err
	}

	// Return pending events first
	if len(s.pending) > 0 {
		event := s.pending[0]
		s.pending = s.pending[1:]
		return event, nil
	}

	if s.finished {
		return nil, io.EOF
	}

	for {
		// A truncated stream can end with a partial data line and no
		// trailing newline; ReadString hands that line back alongside
		// io.EOF, so process it and let the next read hit EOF again.
		line, err := s.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			s.err = err
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			if err == io.EOF {
				return s.buildFinalEvent()
			}
			continue
		}

		// Parse SSE format: "data: <json>"
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" || data == "" {
			return s.buildFinalEvent()
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // Skip unparseable chunks
		}

		// Usage may arrive on any chunk, usually the last
		if chunk.UsageMetadata != nil {
			s.accumulator.inputTokens = chunk.UsageMetadata.PromptTokenCount
			s.accumulator.outputTokens = chunk.UsageMetadata.CandidatesTokenCount
			s.accumulator.thinkingTokens = chunk.UsageMetadata.ThoughtsTokenCount
			s.accumulator.totalTokens = chunk.UsageMetadata.TotalTokenCount
		}

		if len(chunk.Candidates) == 0 {
			continue
		}
		candidate := chunk.Candidates[0]

		if candidate.FinishReason != "" {
			s.accumulator.finishReason = candidate.FinishReason
		}

		if !s.started {
			s.started = true
			s.pending = append(s.pending, types.MessageStartEvent{
				Message: types.MessageResponse{
					ID:      fmt.Sprintf("msg_%s", stripModelPrefix(s.model)),
					Type:    "message",
					Role:    types.RoleModel,
					Model:   stripModelPrefix(s.model),
					Content: []types.ContentBlock{},
					Usage:   types.Usage{},
				},
			})
		}

		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				if !s.accumulator.textStarted {
					s.accumulator.textStarted = true
					s.accumulator.textIndex = s.accumulator.nextIndex
					s.accumulator.nextIndex++
					s.pending = append(s.pending, types.ContentBlockStartEvent{
						Index: s.accumulator.textIndex,
						Block: types.TextBlock{Type: "text", Text: ""},
					})
				}

				s.pending = append(s.pending, types.TextDeltaEvent{
					Index: s.accumulator.textIndex,
					Text:  part.Text,
				})
			}

			// Image-output models interleave whole inline images with text
			if part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				index := s.accumulator.nextIndex
				s.accumulator.nextIndex++
				s.pending = append(s.pending, types.ContentBlockStartEvent{
					Index: index,
					Block: types.InlineImage(part.InlineData.MIMEType, part.InlineData.Data),
				})
			}
		}

		if len(s.pending) > 0 {
			event := s.pending[0]
			s.pending = s.pending[1:]
			return event, nil
		}
	}
}

// buildFinalEvent builds the final event when the stream ends.
func (s *eventStream) buildFinalEvent() (types.StreamEvent, error) {
	if s.finished {
		return nil, io.EOF
	}
	s.finished = true

	total := s.accumulator.totalTokens
	if total == 0 {
		total = s.accumulator.inputTokens + s.accumulator.outputTokens
	}

	// message_delta with stop reason and usage (next call returns EOF)
	return types.MessageDeltaEvent{
		StopReason: mapFinishReason(s.accumulator.finishReason),
		Usage: types.Usage{
			InputTokens:    s.accumulator.inputTokens,
			OutputTokens:   s.accumulator.outputTokens,
			ThinkingTokens: s.accumulator.thinkingTokens,
			TotalTokens:    total,
		},
	}, nil
}

// Close releases resources associated with the stream.
func (s *eventStream) Close() error {
	return s.closer.Close()
}
