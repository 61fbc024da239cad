package explain

import (
	"strings"
	"testing"

	"github.com/mikey/phish-guard/internal/core"
)

func TestReasons_BenignEmail(t *testing.T) {
	email := core.EmailInput{
		Sender:  "newsletter@company.com",
		Subject: "Weekly update",
		Snippet: "Here's what's new this week.",
	}
	reasons := Reasons(0, email, false)

	if len(reasons) != 2 {
		t.Fatalf("Expected mode indicator plus backstop, got %d reasons: %v", len(reasons), reasons)
	}
	if !strings.Contains(reasons[0], "Rule-based scan") {
		t.Errorf("Expected heuristic mode indicator first, got %q", reasons[0])
	}
	if reasons[1] != noRedFlags {
		t.Errorf("Expected %q backstop, got %q", noRedFlags, reasons[1])
	}
}

func TestReasons_NeverEmptyNeverMoreThanFive(t *testing.T) {
	loaded := core.EmailInput{
		Sender:  "security@deals.xyz",
		Subject: "Urgent: verify your account now",
		Snippet: "Your account is suspended. You won a $500 prize. Click here and send your password.",
	}

	for _, score := range []int{0, 34, 35, 64, 65, 100} {
		for _, usedRemote := range []bool{false, true} {
			reasons := Reasons(score, loaded, usedRemote)
			if len(reasons) == 0 {
				t.Errorf("score=%d remote=%t: got empty reason list", score, usedRemote)
			}
			if len(reasons) > 5 {
				t.Errorf("score=%d remote=%t: got %d reasons, want at most 5", score, usedRemote, len(reasons))
			}
		}
	}
}

func TestReasons_ModeIndicatorFirst(t *testing.T) {
	email := core.EmailInput{Snippet: "please verify your account"}

	remote := Reasons(90, email, true)
	if !strings.Contains(remote[0], "AI model") {
		t.Errorf("Expected AI mode indicator first, got %q", remote[0])
	}

	local := Reasons(90, email, false)
	if !strings.Contains(local[0], "Rule-based scan") {
		t.Errorf("Expected rule-based mode indicator first, got %q", local[0])
	}
}

func TestReasons_SignalOrderIsFixed(t *testing.T) {
	email := core.EmailInput{
		Sender:  "support@bank-alerts.com",
		Subject: "Account suspended",
		Snippet: "Verify your identity and enter your password.",
	}
	reasons := Reasons(80, email, false)

	// verification is checked before suspension, which is checked before
	// the sensitive-data signal
	idxVerify := indexOf(reasons, "Asks you to verify or confirm personal information")
	idxSuspend := indexOf(reasons, "Claims your account is suspended or restricted")
	idxSensitive := indexOf(reasons, "Requests sensitive personal data")

	if idxVerify < 0 || idxSuspend < 0 || idxSensitive < 0 {
		t.Fatalf("Missing expected reasons in %v", reasons)
	}
	if !(idxVerify < idxSuspend && idxSuspend < idxSensitive) {
		t.Errorf("Signal reasons out of order: %v", reasons)
	}
}

func TestReasons_Deduplicated(t *testing.T) {
	email := core.EmailInput{
		Snippet: "verify your account, then verify your identity, and verify your card",
	}
	reasons := Reasons(40, email, false)

	seen := make(map[string]int)
	for _, r := range reasons {
		seen[r]++
		if seen[r] > 1 {
			t.Errorf("Duplicate reason %q in %v", r, reasons)
		}
	}
}

func indexOf(list []string, want string) int {
	for i, s := range list {
		if s == want {
			return i
		}
	}
	return -1
}
