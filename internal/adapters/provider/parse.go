package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/uxray-ai/uxray/internal/core"
)

// ParsePayload normalizes a model's text reply into the typed payload for
// the requested stage. Models habitually wrap JSON in markdown fences or
// prose; extraction tolerates both. A reply that still does not parse is
// a provider failure for that model, counted like any other.
func ParsePayload(name string, stage core.Stage, content string) (*core.Payload, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, parseError(name, "reply contains no JSON object", nil)
	}

	switch stage {
	case core.StageVision:
		var v core.VisionPayload
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, parseError(name, "reply does not match vision schema", err)
		}
		return &core.Payload{Vision: &v}, nil
	case core.StageAnalysis:
		var a core.AnalysisPayload
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, parseError(name, "reply does not match analysis schema", err)
		}
		return &core.Payload{Analysis: &a}, nil
	case core.StageSynthesis:
		var s core.SynthesisPayload
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, parseError(name, "reply does not match synthesis schema", err)
		}
		return &core.Payload{Synthesis: &s}, nil
	default:
		return nil, core.ErrConfig(core.CodeInvalidConfig,
			fmt.Sprintf("stage %s is not a provider stage", stage))
	}
}

// extractJSON pulls the outermost JSON object out of a model reply,
// stripping markdown fences and surrounding prose.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			content = rest[:end]
		} else {
			content = rest
		}
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func parseError(name, message string, cause error) *core.DomainError {
	return &core.DomainError{
		Category:  core.ErrCatProvider,
		Code:      core.CodeParseFailed,
		Message:   fmt.Sprintf("provider %s: %s", name, message),
		Retryable: true,
		Cause:     cause,
		Details:   map[string]interface{}{"provider": name},
	}
}
