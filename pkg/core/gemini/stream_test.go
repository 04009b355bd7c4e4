package gemini

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

func sseBody(chunks ...map[string]any) io.ReadCloser {
	var b strings.Builder
	for _, c := range chunks {
		data, _ := json.Marshal(c)
		b.WriteString("data: ")
		b.Write(data)
		b.WriteString("\n\n")
	}
	return io.NopCloser(strings.NewReader(b.String()))
}

func textChunk(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
}

func TestEventStream_EmitsTerminalMessageDeltaBeforeEOF(t *testing.T) {
	stream := newEventStream(io.NopCloser(strings.NewReader("")), "gemini-2.5-flash")
	stream.accumulator.finishReason = "STOP"
	stream.accumulator.inputTokens = 9
	stream.accumulator.outputTokens = 4

	event, err := stream.Next()
	if err != nil {
		t.Fatalf("Next() error = %v, want nil", err)
	}

	delta, ok := event.(types.MessageDeltaEvent)
	if !ok {
		t.Fatalf("event type = %T, want MessageDeltaEvent", event)
	}
	if delta.StopReason != types.StopReasonEndTurn {
		t.Fatalf("stop reason = %q, want %q", delta.StopReason, types.StopReasonEndTurn)
	}
	if delta.Usage.InputTokens != 9 || delta.Usage.OutputTokens != 4 || delta.Usage.TotalTokens != 13 {
		t.Fatalf("usage = %+v, want input=9 output=4 total=13", delta.Usage)
	}

	event, err = stream.Next()
	if err != io.EOF {
		t.Fatalf("second Next() error = %v, want io.EOF", err)
	}
	if event != nil {
		t.Fatalf("second Next() event = %T, want nil", event)
	}
}

func TestEventStream_TextDeltasArriveInOrder(t *testing.T) {
	stream := newEventStream(sseBody(textChunk("Hel"), textChunk("lo")), "gemini-2.5-flash")

	if event, err := stream.Next(); err != nil {
		t.Fatalf("first Next() error = %v, want nil", err)
	} else if _, ok := event.(types.MessageStartEvent); !ok {
		t.Fatalf("first event type = %T, want MessageStartEvent", event)
	}

	if event, err := stream.Next(); err != nil {
		t.Fatalf("second Next() error = %v, want nil", err)
	} else if start, ok := event.(types.ContentBlockStartEvent); !ok {
		t.Fatalf("second event type = %T, want ContentBlockStartEvent", event)
	} else if start.Block.BlockType() != "text" {
		t.Fatalf("block type = %q, want text", start.Block.BlockType())
	}

	var text string
	for {
		event, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v, want nil", err)
		}
		if delta, ok := event.(types.TextDeltaEvent); ok {
			text += delta.Text
		}
	}
	if text != "Hello" {
		t.Fatalf("accumulated text = %q, want %q", text, "Hello")
	}
}

func TestEventStream_InlineImageBecomesBlockStart(t *testing.T) {
	imageChunk := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{
						map[string]any{
							"inlineData": map[string]any{
								"mimeType": "image/png",
								"data":     "aWM=",
							},
						},
					},
				},
				"finishReason": "STOP",
			},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     3,
			"candidatesTokenCount": 1,
			"totalTokenCount":      4,
		},
	}

	stream := newEventStream(sseBody(textChunk("here: "), imageChunk), "gemini-2.5-flash-image")

	var (
		imageStarts int
		imageIndex  int
		textIndex   = -1
	)
	for {
		event, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v, want nil", err)
		}
		if start, ok := event.(types.ContentBlockStartEvent); ok {
			switch start.Block.BlockType() {
			case "image":
				imageStarts++
				imageIndex = start.Index
			case "text":
				textIndex = start.Index
			}
		}
	}

	if imageStarts != 1 {
		t.Fatalf("image block starts = %d, want 1", imageStarts)
	}
	if textIndex != 0 || imageIndex != 1 {
		t.Fatalf("block indexes = text:%d image:%d, want text:0 image:1", textIndex, imageIndex)
	}
}

func TestEventStream_SkipsUnparseableChunks(t *testing.T) {
	body := "data: not-json\n\ndata: " + mustJSON(textChunk("ok")) + "\n\n"
	stream := newEventStream(io.NopCloser(strings.NewReader(body)), "gemini-2.5-flash")

	var sawDelta bool
	for {
		event, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v, want nil", err)
		}
		if _, ok := event.(types.TextDeltaEvent); ok {
			sawDelta = true
		}
	}
	if !sawDelta {
		t.Fatal("expected a text delta from the valid chunk")
	}
}

func TestEventStream_DecodesPartialFinalLine(t *testing.T) {
	// A stream cut off mid-transfer can end with a data line that has
	// no trailing newline. The payload must still come through.
	body := "data: " + mustJSON(textChunk("first")) + "\n\ndata: " + mustJSON(textChunk("tail"))
	stream := newEventStream(io.NopCloser(strings.NewReader(body)), "gemini-2.5-flash")

	var (
		texts []string
		final bool
	)
	for {
		event, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v, want nil", err)
		}
		switch e := event.(type) {
		case types.TextDeltaEvent:
			texts = append(texts, e.Text)
		case types.MessageDeltaEvent:
			final = true
		}
	}
	if len(texts) != 2 || texts[0] != "first" || texts[1] != "tail" {
		t.Fatalf("text deltas = %v, want [first tail]", texts)
	}
	if !final {
		t.Fatal("expected terminal MessageDeltaEvent")
	}
}

func mustJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}
