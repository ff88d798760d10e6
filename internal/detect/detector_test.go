package detect

import (
	"math"
	"strings"
	"testing"

	"github.com/uxray-ai/uxray/internal/core"
)

func TestDetect_TypeAndDomain(t *testing.T) {
	d := New(0.7)

	tests := []struct {
		name       string
		hints      ImageHints
		text       string
		wantType   string
		wantDomain string
	}{
		{
			"dashboard from text",
			ImageHints{},
			"review this analytics dashboard for our saas admin panel",
			"dashboard", "saas",
		},
		{
			"checkout from filename",
			ImageHints{Name: "checkout-v2.png"},
			"we run an online store",
			"checkout", "ecommerce",
		},
		{
			"form",
			ImageHints{},
			"this is our signup form for the banking app",
			"form", "finance",
		},
		{
			"nothing recognized",
			ImageHints{},
			"",
			core.TypeUnknown, core.DomainGeneral,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := d.Detect(tt.hints, tt.text)
			if ctx.PrimaryType != tt.wantType {
				t.Errorf("type = %s, want %s", ctx.PrimaryType, tt.wantType)
			}
			if ctx.Domain != tt.wantDomain {
				t.Errorf("domain = %s, want %s", ctx.Domain, tt.wantDomain)
			}
		})
	}
}

func TestDetect_ConfidenceWeights(t *testing.T) {
	d := New(0.7)

	// Nothing matches: neutral base.
	ctx := d.Detect(ImageHints{}, "")
	if ctx.Confidence != 0.5 {
		t.Errorf("neutral confidence = %f, want 0.5", ctx.Confidence)
	}

	// Type only: 0.5 + 0.2.
	ctx = d.Detect(ImageHints{Name: "dashboard.png"}, "")
	if math.Abs(ctx.Confidence-0.7) > 1e-9 {
		t.Errorf("type-only confidence = %f, want 0.7", ctx.Confidence)
	}

	// Every signal present caps at 1.0.
	ctx = d.Detect(ImageHints{Name: "checkout.png"},
		"I am a ux designer for an ecommerce store and want to improve conversion")
	if ctx.Confidence != 1.0 {
		t.Errorf("all-signal confidence = %f, want 1.0", ctx.Confidence)
	}
}

func TestDetect_ClarificationGate(t *testing.T) {
	d := New(0.7)

	ctx := d.Detect(ImageHints{}, "")
	if !ctx.ClarificationNeeded {
		t.Fatal("gate not set below threshold")
	}
	if len(ctx.ClarificationQuestions) == 0 {
		t.Error("no questions with the gate set")
	}
	if len(ctx.ClarificationQuestions) > 3 {
		t.Errorf("questions = %d, want at most 3", len(ctx.ClarificationQuestions))
	}

	ctx = d.Detect(ImageHints{}, "improve conversion on this checkout page for our shop")
	if ctx.ClarificationNeeded {
		t.Errorf("gate set at confidence %f >= 0.7", ctx.Confidence)
	}

	// A type-bearing filename alone lands exactly on the threshold, and
	// the gate only trips strictly below it.
	ctx = d.Detect(ImageHints{Name: "checkout.png"}, "")
	if math.Abs(ctx.Confidence-0.7) > 1e-9 {
		t.Fatalf("filename-only confidence = %f, want 0.7", ctx.Confidence)
	}
	if ctx.ClarificationNeeded {
		t.Error("gate set at exactly the threshold")
	}
}

func TestDetect_QuestionsTargetMissingSignals(t *testing.T) {
	d := New(0.99)

	// Role known, type unknown: ask about the interface, not the role.
	ctx := d.Detect(ImageHints{}, "I am a developer and want to fix this")
	var askedType, askedRole bool
	for _, q := range ctx.ClarificationQuestions {
		if strings.Contains(q, "kind of interface") {
			askedType = true
		}
		if strings.Contains(q, "your role") {
			askedRole = true
		}
	}
	if !askedType {
		t.Error("did not ask about the unknown interface type")
	}
	if askedRole {
		t.Error("asked about a role the user already stated")
	}
}

func TestDetect_BusinessRoleOnlyAsksForFocus(t *testing.T) {
	d := New(0.7)

	// A role with no type, domain or goal stays below the threshold and
	// must be asked what to look at.
	ctx := d.Detect(ImageHints{}, "I'm a business owner and stakeholder")
	if ctx.UserRole != "business" {
		t.Errorf("role = %s, want business", ctx.UserRole)
	}
	if ctx.Confidence >= 0.7 {
		t.Fatalf("confidence = %f, want below 0.7", ctx.Confidence)
	}
	if !ctx.ClarificationNeeded {
		t.Fatal("gate not set for role-only text")
	}
	var askedFocus bool
	for _, q := range ctx.ClarificationQuestions {
		if strings.Contains(q, "focus on") {
			askedFocus = true
		}
	}
	if !askedFocus {
		t.Errorf("questions = %v, want one asking what to focus on", ctx.ClarificationQuestions)
	}
}

func TestDetect_RoleAndExpertise(t *testing.T) {
	d := New(0.7)

	ctx := d.Detect(ImageHints{}, "as a founder I'm not technical, explain in simple terms")
	if ctx.UserRole != "business" {
		t.Errorf("role = %s, want business", ctx.UserRole)
	}
	if ctx.UserExpertise != "beginner" {
		t.Errorf("expertise = %s, want beginner", ctx.UserExpertise)
	}

	ctx = d.Detect(ImageHints{}, "senior ux designer, run a full wcag audit")
	if ctx.UserRole != "designer" {
		t.Errorf("role = %s, want designer", ctx.UserRole)
	}
	if ctx.UserExpertise != "expert" {
		t.Errorf("expertise = %s, want expert", ctx.UserExpertise)
	}
}

func TestDetect_FocusAreasAndDepth(t *testing.T) {
	d := New(0.7)

	ctx := d.Detect(ImageHints{}, "check the contrast and whether the layout helps conversion")
	want := map[string]bool{"accessibility": true, "conversion": true, "visual-design": true}
	if len(ctx.FocusAreas) != len(want) {
		t.Fatalf("focus areas = %v, want 3", ctx.FocusAreas)
	}
	for _, area := range ctx.FocusAreas {
		if !want[area] {
			t.Errorf("unexpected focus area %s", area)
		}
	}
	// Two or more focus areas imply a deep pass.
	if ctx.AnalysisDepth != core.DepthDeep {
		t.Errorf("depth = %s, want deep", ctx.AnalysisDepth)
	}

	ctx = d.Detect(ImageHints{}, "just a quick first impression please")
	if ctx.AnalysisDepth != core.DepthQuick {
		t.Errorf("depth = %s, want quick", ctx.AnalysisDepth)
	}
}

func TestDetect_Complexity(t *testing.T) {
	d := New(0.7)

	if got := d.Detect(ImageHints{}, "a data-heavy screen with many tables").Complexity; got != core.ComplexityComplex {
		t.Errorf("complexity = %s, want complex", got)
	}
	if got := d.Detect(ImageHints{}, "a minimal single page").Complexity; got != core.ComplexitySimple {
		t.Errorf("complexity = %s, want simple", got)
	}
	if got := d.Detect(ImageHints{}, "").Complexity; got != core.ComplexityModerate {
		t.Errorf("complexity = %s, want moderate", got)
	}
}

func TestProcessClarification(t *testing.T) {
	d := New(0.7)

	prev := d.Detect(ImageHints{}, "")
	if !prev.ClarificationNeeded {
		t.Fatal("precondition: gate should be set")
	}

	next := d.ProcessClarification(prev, []string{
		"it's a dashboard", "I'm a product manager", "focus on usability",
	})
	if next.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", next.Confidence)
	}
	if next.ClarificationNeeded {
		t.Error("gate still set after clarification")
	}
	if next.ClarificationQuestions != nil {
		t.Error("questions survived clarification")
	}
	if next.PrimaryType != "dashboard" {
		t.Errorf("type = %s, want dashboard", next.PrimaryType)
	}
	if next.UserRole != "product" {
		t.Errorf("role = %s, want product", next.UserRole)
	}
	if len(next.FocusAreas) != 1 || next.FocusAreas[0] != "usability" {
		t.Errorf("focus areas = %v, want [usability]", next.FocusAreas)
	}
}

func TestProcessClarification_PreservesPriorSignals(t *testing.T) {
	d := New(0.99)

	prev := d.Detect(ImageHints{Name: "checkout.png"}, "focus on accessibility")
	next := d.ProcessClarification(prev, []string{"I'm a developer, also check conversion"})

	if next.PrimaryType != "checkout" {
		t.Errorf("type = %s, want checkout preserved", next.PrimaryType)
	}
	want := map[string]bool{"accessibility": true, "conversion": true}
	for _, area := range next.FocusAreas {
		if !want[area] {
			t.Errorf("unexpected focus area %s", area)
		}
		delete(want, area)
	}
	if len(want) != 0 {
		t.Errorf("focus areas %v missing from %v", want, next.FocusAreas)
	}
}

func TestNew_InvalidThresholdFallsBack(t *testing.T) {
	for _, threshold := range []float64{0, -1, 1.5} {
		d := New(threshold)
		if d.threshold != DefaultClarification {
			t.Errorf("New(%f) threshold = %f, want %f", threshold, d.threshold, DefaultClarification)
		}
	}
}
