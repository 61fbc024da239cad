package explain

import (
	"regexp"

	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/heuristic"
)

// maxReasons bounds the reason list shown to the caller
const maxReasons = 5

const noRedFlags = "No obvious red flags detected"

// signal is one content check that contributes a reason when it matches.
// Signals are checked in a fixed order against the same normalized text
// the rule evaluator uses; they are not re-derived from the score.
type signal struct {
	pattern *regexp.Regexp
	reason  string
}

var signals = []signal{
	{regexp.MustCompile(`verify your|confirm your`), "Asks you to verify or confirm personal information"},
	{regexp.MustCompile(`suspend`), "Claims your account is suspended or restricted"},
	{regexp.MustCompile(`urgent|immediately|act now|expir`), "Uses urgent, high-pressure language"},
	{regexp.MustCompile(`\bwon\b|winner|prize|lottery|congratulations`), "Promises a prize or winnings"},
	{regexp.MustCompile(`\$[0-9]`), "Mentions specific money amounts"},
	{regexp.MustCompile(`click`), "Pushes you to click a link"},
	{regexp.MustCompile(`\.tk\b|\.ml\b|\.ga\b|\.xyz\b`), "Sender address uses a suspicious domain"},
	{regexp.MustCompile(`password|\bssn\b|social security|credit card|bank account`), "Requests sensitive personal data"},
}

// Generator builds ordered, deduplicated reason lists. Stateless.
type Generator struct{}

// NewGenerator creates a new explanation generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Reasons returns 1..5 reasons for a score: a mode indicator first, then
// one reason per matching content signal.
func (g *Generator) Reasons(score int, email core.EmailInput, usedRemote bool) []string {
	return Reasons(score, email, usedRemote)
}

// Reasons is the package-level form of Generator.Reasons
func Reasons(score int, email core.EmailInput, usedRemote bool) []string {
	text := heuristic.Normalize(email)

	reasons := []string{modeIndicator(score, usedRemote)}
	for _, s := range signals {
		if s.pattern.MatchString(text) {
			reasons = append(reasons, s.reason)
		}
	}

	reasons = dedupe(reasons)
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	if len(reasons) < 2 {
		reasons = append(reasons, noRedFlags)
	}
	return reasons
}

// modeIndicator is the first reason, varying by score band and mode
func modeIndicator(score int, usedRemote bool) string {
	level := core.RiskLevelForScore(score)
	if usedRemote {
		switch level {
		case core.RiskHigh:
			return "AI model classified this message as likely phishing"
		case core.RiskMedium:
			return "AI model found this message suspicious"
		default:
			return "AI model found no strong phishing signals"
		}
	}

	switch level {
	case core.RiskHigh:
		return "Rule-based scan found multiple phishing indicators"
	case core.RiskMedium:
		return "Rule-based scan found some suspicious patterns"
	default:
		return "Rule-based scan found nothing alarming"
	}
}

// dedupe removes duplicate reasons, keeping first occurrences in order
func dedupe(reasons []string) []string {
	seen := make(map[string]bool, len(reasons))
	out := reasons[:0]
	for _, r := range reasons {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
