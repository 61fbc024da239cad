package heuristic

import (
	"regexp"
	"strings"

	"github.com/mikey/phish-guard/internal/core"
)

// rule is one independent scoring pattern. Rules are not mutually
// exclusive: every rule that matches contributes its points.
type rule struct {
	name    string
	points  int
	pattern *regexp.Regexp
}

// The rule table is fixed and ordered. Point values are part of the
// compatibility contract and must not change.
var rules = []rule{
	{"account-verification", 40, regexp.MustCompile(`verify your (account|identity)|confirm your identity|account (has been |is )?suspended`)},
	{"urgent-action", 35, regexp.MustCompile(`urgent action|click .{0,50}immediately|immediately or|suspended unless|will be closed`)},
	{"prize-lure", 35, regexp.MustCompile(`you('ve| have)? won|lottery|claim your (prize|reward)|congratulations`)},
	{"payment-mention", 30, regexp.MustCompile(`\$[0-9]|payment (failed|declined)|failed payment`)},
	{"access-threat", 30, regexp.MustCompile(`will be (closed|terminated|deleted)|lose access|expires? soon`)},
	{"sensitive-data", 35, regexp.MustCompile(`social security|\bssn\b|password|credit card|bank account`)},
	{"suspicious-domain", 40, regexp.MustCompile(`\.tk\b|\.ml\b|\.ga\b|\.xyz\b|tempmail|10minutemail|guerrillamail|mailinator`)},
	{"url-shortener", 20, regexp.MustCompile(`bit\.ly|tinyurl|goo\.gl`)},
	{"generic-greeting", 15, regexp.MustCompile(`dear (customer|user|member)`)},
	{"stock-phrasing", 10, regexp.MustCompile(`kindly|needful|revert back`)},
}

const brandMismatchPoints = 30

// knownBrands are checked for impersonation: a brand mentioned in the text
// while absent from the sender's domain. The check is literal substring
// containment, so typo-squatted domains like "paypa1.com" slip through;
// that matches the observed behavior this engine replaces.
var knownBrands = []string{
	"paypal",
	"amazon",
	"apple",
	"microsoft",
	"netflix",
	"google",
	"facebook",
	"bank of america",
	"wells fargo",
	"chase",
}

// Evaluator implements local rule-based scoring. It is stateless; the
// type exists so the orchestrator can take it as an injected port.
type Evaluator struct{}

// NewEvaluator creates a new rule evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate scores an email against the rule table. Pure and deterministic,
// always in [0,100].
func (e *Evaluator) Evaluate(email core.EmailInput) int {
	return Evaluate(email)
}

// Evaluate is the package-level form of Evaluator.Evaluate
func Evaluate(email core.EmailInput) int {
	text := Normalize(email)

	total := 0
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			total += r.points
		}
	}
	if brandMismatch(text, email.Sender) {
		total += brandMismatchPoints
	}

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return total
}

// Normalize builds the text every rule is matched against: the lowercase,
// whitespace-joined concatenation of sender, subject and snippet.
func Normalize(email core.EmailInput) string {
	joined := strings.Join([]string{email.Sender, email.Subject, email.Snippet}, " ")
	return strings.ToLower(strings.TrimSpace(joined))
}

// brandMismatch reports whether the text mentions a known brand whose name
// does not appear in the sender's domain.
func brandMismatch(text, sender string) bool {
	domain := senderDomain(sender)
	for _, brand := range knownBrands {
		if !strings.Contains(text, brand) {
			continue
		}
		domainNeedle := strings.ReplaceAll(brand, " ", "")
		if !strings.Contains(domain, domainNeedle) {
			return true
		}
	}
	return false
}

// senderDomain extracts the lowercase domain part of an address
func senderDomain(sender string) string {
	parts := strings.Split(sender, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}
