package provider

import (
	"errors"
	"testing"

	"github.com/uxray-ai/uxray/internal/core"
)

func TestParsePayload_PlainJSON(t *testing.T) {
	content := `{"summary":"a checkout page","elements":[{"category":"control","name":"Pay now","region":"main"}]}`

	payload, err := ParsePayload("gpt", core.StageVision, content)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if payload.Vision == nil {
		t.Fatal("vision payload nil")
	}
	if payload.Vision.Summary != "a checkout page" {
		t.Errorf("summary = %q", payload.Vision.Summary)
	}
	if len(payload.Vision.Elements) != 1 || payload.Vision.Elements[0].Name != "Pay now" {
		t.Errorf("elements = %+v", payload.Vision.Elements)
	}
}

func TestParsePayload_MarkdownFence(t *testing.T) {
	content := "Here is the analysis:\n```json\n{\"overall_score\": 72, \"findings\": []}\n```\nLet me know if you need more."

	payload, err := ParsePayload("gpt", core.StageAnalysis, content)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if payload.Analysis.OverallScore != 72 {
		t.Errorf("overall = %f, want 72", payload.Analysis.OverallScore)
	}
}

func TestParsePayload_FenceWithoutLanguageTag(t *testing.T) {
	content := "```\n{\"summary\":\"fix the form\",\"action_items\":[]}\n```"

	payload, err := ParsePayload("gpt", core.StageSynthesis, content)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if payload.Synthesis.Summary != "fix the form" {
		t.Errorf("summary = %q", payload.Synthesis.Summary)
	}
}

func TestParsePayload_ProseAroundObject(t *testing.T) {
	content := `Sure! The result is {"summary":"a dashboard"} as requested.`

	payload, err := ParsePayload("gpt", core.StageVision, content)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if payload.Vision.Summary != "a dashboard" {
		t.Errorf("summary = %q", payload.Vision.Summary)
	}
}

func TestParsePayload_NoJSON(t *testing.T) {
	_, err := ParsePayload("gpt", core.StageVision, "I cannot analyze this image.")
	if err == nil {
		t.Fatal("ParsePayload() error = nil for a reply without JSON")
	}
	var domErr *core.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("error type = %T", err)
	}
	if domErr.Code != core.CodeParseFailed {
		t.Errorf("code = %s, want %s", domErr.Code, core.CodeParseFailed)
	}
	// Parse failures count like any provider failure and stay retryable.
	if !domErr.Retryable {
		t.Error("parse failure not retryable")
	}
}

func TestParsePayload_SchemaMismatch(t *testing.T) {
	// findings must be an array, not a string.
	_, err := ParsePayload("gpt", core.StageAnalysis, `{"findings":"none"}`)
	if err == nil {
		t.Fatal("ParsePayload() error = nil for a schema mismatch")
	}
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeParseFailed {
		t.Errorf("error = %v, want parse failure", err)
	}
}

func TestParsePayload_NonProviderStage(t *testing.T) {
	_, err := ParsePayload("gpt", core.StageContext, `{}`)
	if err == nil {
		t.Fatal("ParsePayload() error = nil for a non-provider stage")
	}
	if !core.IsCategory(err, core.ErrCatConfig) {
		t.Errorf("category = %s, want config", core.GetCategory(err))
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"leading prose", `result: {"a":1}`, `{"a":1}`},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"no object", "no json here", ""},
		{"brace order", "} {", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.content); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
