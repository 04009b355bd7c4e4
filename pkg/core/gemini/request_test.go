package gemini

import (
	"testing"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

func TestBuildRequest_SystemAndModalities(t *testing.T) {
	req := &types.GenerateRequest{
		Model:  "gemini-2.5-flash-image",
		System: "be brief",
		Messages: []types.Message{
			{Role: types.RoleUser, Content: []types.ContentBlock{types.Text("draw a cat")}},
		},
		MaxTokens:          1024,
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	out := buildRequest(req)

	if out.SystemInstruction == nil || out.SystemInstruction.Parts[0].Text != "be brief" {
		t.Fatalf("system instruction not translated: %+v", out.SystemInstruction)
	}
	if len(out.Contents) != 1 || out.Contents[0].Role != "user" {
		t.Fatalf("contents = %+v, want single user content", out.Contents)
	}
	if out.GenerationConfig == nil {
		t.Fatal("generation config missing")
	}
	if got := out.GenerationConfig.MaxOutputTokens; got == nil || *got != 1024 {
		t.Fatalf("maxOutputTokens = %v, want 1024", got)
	}
	if len(out.GenerationConfig.ResponseModalities) != 2 {
		t.Fatalf("responseModalities = %v, want [TEXT IMAGE]", out.GenerationConfig.ResponseModalities)
	}
}

func TestBuildGenerationConfig_DefaultsMaxTokens(t *testing.T) {
	out := buildRequest(&types.GenerateRequest{
		Messages: []types.Message{
			{Role: types.RoleUser, Content: []types.ContentBlock{types.Text("hi")}},
		},
	})

	if got := out.GenerationConfig.MaxOutputTokens; got == nil || *got != DefaultMaxTokens {
		t.Fatalf("maxOutputTokens = %v, want default %d", got, DefaultMaxTokens)
	}
}

func TestTranslateMessages_SkipsFailedTurns(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleUser, Content: []types.ContentBlock{types.Text("hi")}},
		{Role: types.RoleModel, Failed: true, Content: []types.ContentBlock{types.Text("partial")}},
		{Role: types.RoleUser, Content: []types.ContentBlock{types.Text("retry")}},
	}

	contents := translateMessages(messages)
	if len(contents) != 2 {
		t.Fatalf("contents = %d, want 2 (failed model turn skipped)", len(contents))
	}
	for _, c := range contents {
		if c.Role != "user" {
			t.Fatalf("unexpected role %q after skipping failed turn", c.Role)
		}
	}
}

func TestTranslateContentBlocks_InlineAndFileData(t *testing.T) {
	blocks := []types.ContentBlock{
		types.Text("look"),
		types.ImageBlock{Type: "image", Source: types.ImageSource{Type: "base64", MediaType: "image/jpeg", Data: "ZGF0YQ=="}},
		types.ImageBlock{Type: "image", Source: types.ImageSource{Type: "url", MediaType: "image/png", URL: "gs://bucket/cat.png"}},
		types.DocumentBlock{Type: "document", Source: types.DocumentSource{Type: "base64", MediaType: "application/pdf", Data: "JVBERi0="}},
	}

	parts := translateContentBlocks(blocks)
	if len(parts) != 4 {
		t.Fatalf("parts = %d, want 4", len(parts))
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/jpeg" {
		t.Fatalf("base64 image should use inlineData: %+v", parts[1])
	}
	if parts[2].FileData == nil || parts[2].FileData.FileURI != "gs://bucket/cat.png" {
		t.Fatalf("url image should use fileData: %+v", parts[2])
	}
	if parts[3].InlineData == nil || parts[3].InlineData.MIMEType != "application/pdf" {
		t.Fatalf("document should use inlineData: %+v", parts[3])
	}
}

func TestStripModelPrefix(t *testing.T) {
	if got := stripModelPrefix("models/gemini-2.5-flash"); got != "gemini-2.5-flash" {
		t.Errorf("stripModelPrefix = %q", got)
	}
	if got := stripModelPrefix("gemini-2.5-flash"); got != "gemini-2.5-flash" {
		t.Errorf("stripModelPrefix without prefix = %q", got)
	}
}
