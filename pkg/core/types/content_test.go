package types

import (
	"encoding/json"
	"testing"
)

func TestContentBlockRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		block ContentBlock
	}{
		{
			name:  "text",
			block: TextBlock{Type: "text", Text: "hello"},
		},
		{
			name: "image base64",
			block: ImageBlock{
				Type: "image",
				Source: ImageSource{
					Type:      "base64",
					MediaType: "image/png",
					Data:      "aGVsbG8=",
				},
			},
		},
		{
			name: "document",
			block: DocumentBlock{
				Type:     "document",
				Source:   DocumentSource{Type: "base64", MediaType: "application/pdf", Data: "JVBERi0="},
				Filename: "notes.pdf",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.block)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got, err := UnmarshalContentBlock(data)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.BlockType() != tt.block.BlockType() {
				t.Errorf("expected block type %q, got %q", tt.block.BlockType(), got.BlockType())
			}
		})
	}
}

func TestUnmarshalContentBlockUnknownType(t *testing.T) {
	got, err := UnmarshalContentBlock([]byte(`{"type":"hologram","data":"x"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tb, ok := got.(TextBlock)
	if !ok {
		t.Fatalf("expected fallback TextBlock, got %T", got)
	}
	if tb.Type != "hologram" {
		t.Errorf("expected original type preserved, got %q", tb.Type)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		ID:   "msg_1",
		Role: RoleModel,
		Content: []ContentBlock{
			TextBlock{Type: "text", Text: "here you go: "},
			ImageBlock{Type: "image", Source: ImageSource{Type: "base64", MediaType: "image/png", Data: "aWM="}},
		},
		StopReason: StopReasonEndTurn,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ID != msg.ID || got.Role != msg.Role {
		t.Errorf("identity mismatch: got %q/%q", got.ID, got.Role)
	}
	if len(got.Content) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(got.Content))
	}
	if got.TextContent() != "here you go: " {
		t.Errorf("unexpected text content %q", got.TextContent())
	}
	if len(got.Images()) != 1 {
		t.Errorf("expected 1 image, got %d", len(got.Images()))
	}
	if got.StopReason != StopReasonEndTurn {
		t.Errorf("expected stop reason end_turn, got %q", got.StopReason)
	}
}

func TestUsageAdd(t *testing.T) {
	a := Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	b := Usage{InputTokens: 1, OutputTokens: 2, ThinkingTokens: 3, TotalTokens: 6}

	sum := a.Add(b)
	if sum.InputTokens != 11 || sum.OutputTokens != 7 || sum.TotalTokens != 21 {
		t.Errorf("unexpected sum: %+v", sum)
	}
	if sum.ThinkingTokens != 3 {
		t.Errorf("expected thinking tokens carried, got %d", sum.ThinkingTokens)
	}
	if sum.IsEmpty() {
		t.Error("sum should not be empty")
	}
	if !(Usage{}).IsEmpty() {
		t.Error("zero usage should be empty")
	}
}
