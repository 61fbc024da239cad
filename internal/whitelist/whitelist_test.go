package whitelist

import "testing"

func TestIsTrusted(t *testing.T) {
	checker := NewChecker([]string{"Partner.Example", " corp.example "}, nil)

	tests := []struct {
		sender string
		want   bool
	}{
		{"billing@partner.example", true},
		{"Billing@PARTNER.EXAMPLE", true},
		{"it@corp.example", true},
		{"billing@evil.example", false},
		{"billing@sub.partner.example", false},
		{"not-an-address", false},
		{"two@ats@partner.example", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := checker.IsTrusted(tt.sender); got != tt.want {
			t.Errorf("IsTrusted(%q) = %t, want %t", tt.sender, got, tt.want)
		}
	}
}

func TestIsTrusted_EmptyList(t *testing.T) {
	checker := NewChecker(nil, nil)
	if checker.IsTrusted("anyone@anywhere.example") {
		t.Error("Empty trust list must never match")
	}
}
