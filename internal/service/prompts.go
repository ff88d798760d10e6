package service

import (
	"fmt"
	"strings"

	"github.com/uxray-ai/uxray/internal/core"
)

// Prompt construction for the three provider stages. Prompts are adapted
// to the detected context so a healthcare form and a gaming landing page
// are not analyzed with identical instructions.

const visionSystemPrompt = `You are a UI inspection engine. Examine the screenshot and report what is ` +
	`visible. Respond with JSON only, matching this shape: {"elements":[{"category":"navigation|form|content|media|control",` +
	`"name":"...","text":"...","region":"header|sidebar|main|footer"}],"layout_signals":["..."],"color_palette":["#rrggbb"],` +
	`"summary":"..."}. Do not analyze quality; describe only.`

const analysisSystemPrompt = `You are a UX analysis engine. Given a structured inventory of a screen, ` +
	`evaluate usability, accessibility and visual design. Respond with JSON only, matching this shape: ` +
	`{"findings":[{"category":"usability|accessibility|design","element":"...","severity":"critical|high|medium|low",` +
	`"description":"..."}],"usability_score":0,"accessibility_score":0,"design_score":0,"overall_score":0}. ` +
	`Scores are 0-100.`

const synthesisSystemPrompt = `You are a UX recommendation engine. Given analysis findings, produce a ` +
	`prioritized improvement plan. Respond with JSON only, matching this shape: {"summary":"...","strengths":["..."],` +
	`"action_items":[{"title":"...","description":"...","impact":"high|medium|low","effort":"high|medium|low"}]}.`

// SystemPrompt returns the fixed instruction block for a stage.
func SystemPrompt(stage core.Stage) string {
	switch stage {
	case core.StageVision:
		return visionSystemPrompt
	case core.StageAnalysis:
		return analysisSystemPrompt
	case core.StageSynthesis:
		return synthesisSystemPrompt
	default:
		return ""
	}
}

// StagePrompt builds the per-request prompt for a stage from the detected
// context and the fused outputs of earlier stages.
func StagePrompt(stage core.Stage, actx *core.AnalysisContext, userText string, prior map[core.Stage]*core.Payload) string {
	var b strings.Builder

	writeContextBrief(&b, actx)
	if userText != "" {
		fmt.Fprintf(&b, "User request: %s\n", userText)
	}

	switch stage {
	case core.StageVision:
		b.WriteString("Inventory every visible interface element in the screenshot.\n")
	case core.StageAnalysis:
		b.WriteString("Evaluate the interface described below.\n")
		if p := prior[core.StageVision]; p != nil && p.Vision != nil {
			writeVisionBrief(&b, p.Vision)
		}
	case core.StageSynthesis:
		b.WriteString("Produce a prioritized improvement plan from the findings below.\n")
		if p := prior[core.StageAnalysis]; p != nil && p.Analysis != nil {
			writeAnalysisBrief(&b, p.Analysis)
		}
	}

	return b.String()
}

func writeContextBrief(b *strings.Builder, actx *core.AnalysisContext) {
	if actx == nil {
		return
	}
	fmt.Fprintf(b, "Interface type: %s. Domain: %s. Complexity: %s.\n",
		actx.PrimaryType, actx.Domain, actx.Complexity)
	if actx.UserRole != "" {
		fmt.Fprintf(b, "Audience: a %s with %s expertise.\n", actx.UserRole, actx.UserExpertise)
	}
	if len(actx.FocusAreas) > 0 {
		fmt.Fprintf(b, "Focus areas: %s.\n", strings.Join(actx.FocusAreas, ", "))
	}
	if actx.AnalysisDepth == core.DepthDeep {
		b.WriteString("Be exhaustive; minor issues matter to this user.\n")
	}
}

func writeVisionBrief(b *strings.Builder, v *core.VisionPayload) {
	if v.Summary != "" {
		fmt.Fprintf(b, "Screen summary: %s\n", v.Summary)
	}
	for _, el := range v.Elements {
		fmt.Fprintf(b, "- [%s] %s", el.Category, el.Name)
		if el.Region != "" {
			fmt.Fprintf(b, " (%s)", el.Region)
		}
		if el.Text != "" {
			fmt.Fprintf(b, ": %q", el.Text)
		}
		b.WriteString("\n")
	}
	if len(v.LayoutSignals) > 0 {
		fmt.Fprintf(b, "Layout: %s\n", strings.Join(v.LayoutSignals, "; "))
	}
}

func writeAnalysisBrief(b *strings.Builder, a *core.AnalysisPayload) {
	fmt.Fprintf(b, "Scores: usability %.0f, accessibility %.0f, design %.0f, overall %.0f.\n",
		a.UsabilityScore, a.A11yScore, a.DesignScore, a.OverallScore)
	for _, f := range a.Findings {
		fmt.Fprintf(b, "- [%s/%s] %s", f.Category, f.Severity, f.Description)
		if f.Element != "" {
			fmt.Fprintf(b, " (element: %s)", f.Element)
		}
		b.WriteString("\n")
	}
}
