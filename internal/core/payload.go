package core

// Payload is the normalized output envelope for one stage. Provider
// responses are opaque JSON; the invoker normalizes them into exactly one
// of these typed payloads at the provider boundary so fusion code never
// pattern-matches on untyped data.
type Payload struct {
	Vision    *VisionPayload    `json:"vision,omitempty"`
	Analysis  *AnalysisPayload  `json:"analysis,omitempty"`
	Synthesis *SynthesisPayload `json:"synthesis,omitempty"`
}

// Empty reports whether no stage payload is present.
func (p *Payload) Empty() bool {
	return p == nil || (p.Vision == nil && p.Analysis == nil && p.Synthesis == nil)
}

// VisionPayload is the normalized output of a vision-stage provider:
// what is visible in the screenshot.
type VisionPayload struct {
	Elements      []Element `json:"elements"`
	LayoutSignals []string  `json:"layout_signals,omitempty"`
	ColorPalette  []string  `json:"color_palette,omitempty"`
	Summary       string    `json:"summary,omitempty"`
}

// Element is a single detected interface element.
type Element struct {
	Category string `json:"category"` // navigation, form, content, media, control
	Name     string `json:"name"`
	Text     string `json:"text,omitempty"`
	Region   string `json:"region,omitempty"` // header, sidebar, main, footer
}

// AnalysisPayload is the normalized output of an analysis-stage provider:
// findings about the interface grouped by discipline.
type AnalysisPayload struct {
	Findings       []Finding `json:"findings"`
	UsabilityScore float64   `json:"usability_score"`     // 0-100
	A11yScore      float64   `json:"accessibility_score"` // 0-100
	DesignScore    float64   `json:"design_score"`        // 0-100
	OverallScore   float64   `json:"overall_score"`       // 0-100
}

// Finding is one issue or observation from the analysis stage.
type Finding struct {
	Category    string `json:"category"` // usability, accessibility, design
	Element     string `json:"element,omitempty"`
	Severity    string `json:"severity"` // critical, high, medium, low
	Description string `json:"description"`
}

// Key returns the composite deduplication key for a finding.
func (f Finding) Key() string {
	return f.Category + "|" + f.Element + "|" + f.Severity
}

// SynthesisPayload is the normalized output of a synthesis-stage provider:
// a prioritized set of recommended actions.
type SynthesisPayload struct {
	Summary     string       `json:"summary"`
	Strengths   []string     `json:"strengths,omitempty"`
	ActionItems []ActionItem `json:"action_items"`
}

// ActionItem is one recommended action with its priority assignment.
type ActionItem struct {
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Impact        string  `json:"impact"` // high, medium, low
	Effort        string  `json:"effort"` // high, medium, low
	Priority      string  `json:"priority,omitempty"`
	PriorityScore float64 `json:"priority_score,omitempty"`
}

// Priority bands assigned by the synthesis fusion step.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)
