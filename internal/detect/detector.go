// Package detect infers what kind of interface a screenshot shows and what
// the requesting user wants from it. Detection is rule-table driven and
// never fails: every bad input degrades to the neutral context.
package detect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/uxray-ai/uxray/internal/core"
)

// Confidence weights. Detection starts at the neutral 0.5 and adds a fixed
// weight per signal present, capped at 1.0.
const (
	baseConfidence       = 0.5
	weightKnownType      = 0.2
	weightKnownDomain    = 0.15
	weightUserRole       = 0.1
	weightExplicitGoals  = 0.1
	weightFocusAreas     = 0.05
	clarifiedConfidence  = 0.9
	DefaultClarification = 0.7
)

// Detector classifies screenshots and user intent against fixed rule
// tables.
type Detector struct {
	threshold float64
}

// New creates a detector with the given clarification threshold.
func New(threshold float64) *Detector {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultClarification
	}
	return &Detector{threshold: threshold}
}

// ImageHints carries what is known about the image before any provider
// call: its reference name and content type. Full visual inference happens
// later in the vision stage; the detector only needs coarse signals.
type ImageHints struct {
	Name        string
	ContentType string
}

// Detect infers an AnalysisContext from image hints and the user's free
// text. It never returns an error; when nothing matches it produces the
// neutral context with the clarification gate set.
func (d *Detector) Detect(img ImageHints, userText string) core.AnalysisContext {
	ctx := core.NeutralContext()

	text := strings.ToLower(userText)
	name := strings.ToLower(img.Name)

	if t := matchTable(typeRules, name+" "+text); t != "" {
		ctx.PrimaryType = t
	}
	if dom := matchTable(domainRules, name+" "+text); dom != "" {
		ctx.Domain = dom
	}
	if role := matchTable(roleRules, text); role != "" {
		ctx.UserRole = role
	}
	if exp := matchTable(expertiseRules, text); exp != "" {
		ctx.UserExpertise = exp
	}
	ctx.FocusAreas = matchAll(focusRules, text)
	ctx.Complexity = estimateComplexity(text)
	ctx.AnalysisDepth = estimateDepth(text, ctx.FocusAreas)

	ctx.Confidence = d.score(&ctx, text)
	if ctx.Confidence < d.threshold {
		ctx.ClarificationNeeded = true
		ctx.ClarificationQuestions = d.questions(&ctx, text)
	}
	return ctx
}

// ProcessClarification re-derives type, domain, role and goals from the
// user's clarification responses using the same rule tables, returning a
// new context with the gate cleared and confidence fixed at 0.9.
func (d *Detector) ProcessClarification(prev core.AnalysisContext, responses []string) core.AnalysisContext {
	next := prev
	text := strings.ToLower(strings.Join(responses, " "))

	if t := matchTable(typeRules, text); t != "" {
		next.PrimaryType = t
	}
	if dom := matchTable(domainRules, text); dom != "" {
		next.Domain = dom
	}
	if role := matchTable(roleRules, text); role != "" {
		next.UserRole = role
	}
	if exp := matchTable(expertiseRules, text); exp != "" {
		next.UserExpertise = exp
	}
	if areas := matchAll(focusRules, text); len(areas) > 0 {
		next.FocusAreas = mergeAreas(prev.FocusAreas, areas)
	}

	next.Confidence = clarifiedConfidence
	next.ClarificationNeeded = false
	next.ClarificationQuestions = nil
	return next
}

// score combines detection signals into a confidence value.
func (d *Detector) score(ctx *core.AnalysisContext, text string) float64 {
	score := baseConfidence
	if ctx.PrimaryType != core.TypeUnknown {
		score += weightKnownType
	}
	if ctx.Domain != core.DomainGeneral {
		score += weightKnownDomain
	}
	if ctx.UserRole != "" {
		score += weightUserRole
	}
	if hasGoalPhrasing(text) {
		score += weightExplicitGoals
	}
	if len(ctx.FocusAreas) > 0 {
		score += weightFocusAreas
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// questions generates up to 3 targeted clarification questions. At least
// one is always emitted when clarification is needed.
func (d *Detector) questions(ctx *core.AnalysisContext, text string) []string {
	var qs []string
	if ctx.PrimaryType == core.TypeUnknown {
		qs = append(qs, "What kind of interface is this (e.g. dashboard, form, landing page, mobile app)?")
	}
	if ctx.UserRole == "" {
		qs = append(qs, "What is your role (e.g. designer, developer, product manager)?")
	}
	if !hasGoalPhrasing(text) {
		qs = append(qs, "What should I focus on in this analysis?")
	}
	if len(qs) == 0 {
		qs = append(qs, "What should I focus on in this analysis?")
	}
	if len(qs) > 3 {
		qs = qs[:3]
	}
	return qs
}

// rule pairs a label with the patterns that select it. First match wins,
// so more specific rules come first in each table.
type rule struct {
	label   string
	pattern *regexp.Regexp
}

func rules(pairs ...string) []rule {
	out := make([]rule, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, rule{label: pairs[i], pattern: regexp.MustCompile(pairs[i+1])})
	}
	return out
}

var typeRules = rules(
	"dashboard", `\bdash\s?board\b|\banalytics\b|\bmetrics?\s+(page|view|screen)\b`,
	"checkout", `\bcheckout\b|\bcart\b|\bpayment\s+(page|form|flow)\b`,
	"form", `\bsign\s?up\b|\blog\s?in\b|\bregistration\b|\bform\b`,
	"landing", `\blanding\s?page\b|\bhome\s?page\b|\bhero\b|\bmarketing\s+(page|site)\b`,
	"mobile", `\bmobile\s+(app|screen|view)\b|\bios\b|\bandroid\b|\bapp\s+screen\b`,
	"settings", `\bsettings\b|\bpreferences\b|\bconfiguration\s+(page|screen)\b`,
	"email", `\bemail\s+(template|campaign|newsletter)\b`,
)

var domainRules = rules(
	"ecommerce", `\be-?commerce\b|\bshop\b|\bstore\b|\bproduct\s+page\b|\bretail\b`,
	"finance", `\bfintech\b|\bbank(ing)?\b|\binvest(ing|ment)?\b|\btrading\b|\binsurance\b`,
	"healthcare", `\bhealth(care)?\b|\bmedical\b|\bpatient\b|\bclinic\b`,
	"education", `\beducation\b|\bcourse\b|\blearning\b|\bstudent\b|\blms\b`,
	"saas", `\bsaas\b|\bb2b\b|\bcrm\b|\badmin\s+panel\b|\bworkspace\b`,
	"travel", `\btravel\b|\bbooking\b|\bhotel\b|\bflight\b`,
)

var roleRules = rules(
	"designer", `\b(ux|ui)\s*designer\b|\bdesigner\b|\bdesign\s+lead\b`,
	"developer", `\bdeveloper\b|\bengineer\b|\bfront-?end\b|\bprogrammer\b`,
	"product", `\bproduct\s+(manager|owner)\b|\bpm\b`,
	"marketing", `\bmarket(er|ing)\b|\bgrowth\b|\bseo\b`,
	"business", `\bfounder\b|\bceo\b|\bbusiness\s+(owner|analyst)\b|\bstakeholder\b|\bclient\b`,
)

var expertiseRules = rules(
	"beginner", `\bbeginner\b|\bnew\s+to\b|\bnot?\s+(an?\s+)?(expert|designer|technical)\b|\bsimple\s+terms\b|\bexplain\b`,
	"expert", `\bexpert\b|\bsenior\b|\bheuristics?\b|\bwcag\b|\bnielsen\b|\byears\s+of\s+experience\b`,
)

var focusRules = rules(
	"accessibility", `\baccessib(le|ility)\b|\ba11y\b|\bwcag\b|\bscreen\s+reader\b|\bcontrast\b`,
	"usability", `\busab(le|ility)\b|\bease\s+of\s+use\b|\buser\s+friendly\b|\bconfusing\b`,
	"conversion", `\bconversion\b|\bcta\b|\bsign-?ups?\b|\bsales\b|\bfunnel\b`,
	"visual-design", `\bvisual\b|\baesthetic\b|\bbrand(ing)?\b|\bcolors?\b|\btypography\b|\blayout\b`,
	"performance", `\bperformance\b|\bspeed\b|\bload(ing)?\s+time\b`,
	"mobile-experience", `\bresponsive\b|\bmobile\s+experience\b|\bsmall\s+screens?\b`,
)

var goalPattern = regexp.MustCompile(`\b(improve|increase|reduce|fix|optimi[sz]e|convert|help\s+me|want\s+to|need\s+to|goal|focus\s+on|looking\s+(to|for)|how\s+(can|do)\b)`)

func hasGoalPhrasing(text string) bool {
	return goalPattern.MatchString(text)
}

func matchTable(table []rule, text string) string {
	for _, r := range table {
		if r.pattern.MatchString(text) {
			return r.label
		}
	}
	return ""
}

func matchAll(table []rule, text string) []string {
	var out []string
	for _, r := range table {
		if r.pattern.MatchString(text) {
			out = append(out, r.label)
		}
	}
	return out
}

func estimateComplexity(text string) string {
	switch {
	case regexp.MustCompile(`\bcomplex\b|\bdense\b|\bdata-?heavy\b|\bmany\s+(widgets|panels|tables)\b`).MatchString(text):
		return core.ComplexityComplex
	case regexp.MustCompile(`\bsimple\b|\bminimal(ist)?\b|\bsingle\s+(page|form|screen)\b`).MatchString(text):
		return core.ComplexitySimple
	default:
		return core.ComplexityModerate
	}
}

func estimateDepth(text string, focusAreas []string) string {
	switch {
	case regexp.MustCompile(`\bquick\b|\bbrief\b|\bglance\b|\bfirst\s+impression\b`).MatchString(text):
		return core.DepthQuick
	case len(focusAreas) >= 2 || regexp.MustCompile(`\bthorough\b|\bdetailed\b|\bdeep\b|\bcomprehensive\b|\baudit\b`).MatchString(text):
		return core.DepthDeep
	default:
		return core.DepthStandard
	}
}

func mergeAreas(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
