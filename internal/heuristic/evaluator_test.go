package heuristic

import (
	"testing"

	"github.com/mikey/phish-guard/internal/core"
)

func TestEvaluate_EmptyInput(t *testing.T) {
	score := Evaluate(core.EmailInput{})
	if score != 0 {
		t.Errorf("Expected score 0 for empty input, got %d", score)
	}
	if level := core.RiskLevelForScore(score); level != core.RiskLow {
		t.Errorf("Expected low risk for empty input, got %s", level)
	}
}

func TestEvaluate_BenignEmail(t *testing.T) {
	email := core.EmailInput{
		Sender:  "newsletter@company.com",
		Subject: "Weekly update",
		Snippet: "Here's what's new this week.",
	}
	if score := Evaluate(email); score != 0 {
		t.Errorf("Expected score 0 for benign email, got %d", score)
	}
}

func TestEvaluate_SuspendedAccountScenario(t *testing.T) {
	email := core.EmailInput{
		Sender:  "security@paypa1.com",
		Subject: "Your account has been suspended",
		Snippet: "Verify your identity immediately or lose access.",
	}
	// Verification/suspension (40) + urgency (35) + access threat (30),
	// clamped. The typo-squatted "paypa1" must not trip the brand rule.
	score := Evaluate(email)
	if score != 100 {
		t.Errorf("Expected clamped score 100, got %d", score)
	}
	if level := core.RiskLevelForScore(score); level != core.RiskHigh {
		t.Errorf("Expected high risk, got %s", level)
	}
}

func TestEvaluate_BrandRuleLiteralSubstring(t *testing.T) {
	impersonated := core.EmailInput{
		Sender:  "alerts@secure-login.com",
		Subject: "Your PayPal receipt",
	}
	if score := Evaluate(impersonated); score != 30 {
		t.Errorf("Expected 30 for brand mention from foreign domain, got %d", score)
	}

	legitimate := core.EmailInput{
		Sender:  "service@paypal.com",
		Subject: "Your PayPal receipt",
	}
	if score := Evaluate(legitimate); score != 0 {
		t.Errorf("Expected 0 for brand mention from brand domain, got %d", score)
	}

	// Homoglyph domains are deliberately not caught by the brand rule:
	// "paypa1" does not contain the literal substring "paypal".
	typoSquatted := core.EmailInput{
		Sender:  "service@paypa1.com",
		Subject: "Receipt enclosed",
	}
	if score := Evaluate(typoSquatted); score != 0 {
		t.Errorf("Expected 0 for typo-squatted domain without brand mention, got %d", score)
	}
}

func TestEvaluate_ClampUpperBound(t *testing.T) {
	email := core.EmailInput{
		Sender:  "winner@prizes.xyz",
		Subject: "Urgent action: verify your account or it will be closed",
		Snippet: "Congratulations, you won the lottery! Send your password, " +
			"SSN and credit card. Pay $500 via bit.ly/abc. Dear customer, " +
			"kindly revert back.",
	}
	score := Evaluate(email)
	if score != 100 {
		t.Errorf("Expected clamped score 100 when many rules fire, got %d", score)
	}
}

func TestEvaluate_Monotonicity(t *testing.T) {
	base := core.EmailInput{
		Sender:  "someone@example.com",
		Subject: "Urgent action required",
	}
	baseScore := Evaluate(base)

	augmented := base
	augmented.Snippet = "Please send your password."
	if got := Evaluate(augmented); got < baseScore {
		t.Errorf("Adding a matching rule decreased the score: %d -> %d", baseScore, got)
	}
}

func TestEvaluate_IndividualRules(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		want    int
	}{
		{"verification", "please verify your account today", 40},
		{"urgency", "urgent action required", 35},
		{"prize", "you have won a lottery", 35},
		{"payment", "your payment failed", 30},
		{"access threat", "you will lose access", 30},
		{"sensitive data", "enter your password", 35},
		{"shortener", "visit bit.ly/x", 20},
		{"greeting", "dear customer", 15},
		{"stock phrasing", "kindly do the needful", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(core.EmailInput{Snippet: tt.snippet})
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %d, want %d", tt.snippet, got, tt.want)
			}
		})
	}
}

func TestEvaluate_SuspiciousSenderDomain(t *testing.T) {
	if got := Evaluate(core.EmailInput{Sender: "offers@deals.tk"}); got != 40 {
		t.Errorf("Expected 40 for .tk sender, got %d", got)
	}
	if got := Evaluate(core.EmailInput{Sender: "no-reply@mailinator.com"}); got != 40 {
		t.Errorf("Expected 40 for disposable-mail sender, got %d", got)
	}
}

func TestNormalize(t *testing.T) {
	email := core.EmailInput{
		Sender:  "Alice@Example.COM",
		Subject: "Hello",
		Snippet: "World",
	}
	want := "alice@example.com hello world"
	if got := Normalize(email); got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}

	if got := Normalize(core.EmailInput{}); got != "" {
		t.Errorf("Normalize(empty) = %q, want empty string", got)
	}
}
