package core

// Interface type, domain and complexity values produced by context detection.
// "unknown"/"general"/"moderate" form the neutral fallback context.
const (
	TypeUnknown   = "unknown"
	DomainGeneral = "general"

	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"

	DepthQuick    = "quick"
	DepthStandard = "standard"
	DepthDeep     = "deep"
)

// AnalysisContext captures what kind of interface is in the image and what
// the requesting user wants. Created once per request by context detection
// and owned by the pipeline controller; the clarification flow is the only
// path that replaces it.
type AnalysisContext struct {
	PrimaryType            string   `json:"primary_type"`
	Domain                 string   `json:"domain"`
	Complexity             string   `json:"complexity"`
	UserRole               string   `json:"user_role,omitempty"`
	UserExpertise          string   `json:"user_expertise"`
	FocusAreas             []string `json:"focus_areas,omitempty"`
	AnalysisDepth          string   `json:"analysis_depth"`
	Confidence             float64  `json:"confidence"`
	ClarificationNeeded    bool     `json:"clarification_needed"`
	ClarificationQuestions []string `json:"clarification_questions,omitempty"`
}

// NeutralContext returns the fixed fallback context used when detection
// itself fails. Detection never raises; it degrades to this.
func NeutralContext() AnalysisContext {
	return AnalysisContext{
		PrimaryType:   TypeUnknown,
		Domain:        DomainGeneral,
		Complexity:    ComplexityModerate,
		UserExpertise: "intermediate",
		AnalysisDepth: DepthStandard,
		Confidence:    0.5,
	}
}
