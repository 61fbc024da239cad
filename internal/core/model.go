package core

import (
	"sync"
	"time"
)

// EmailInput holds the parts of an email that feed the scoring engine.
// All fields may be empty; the engine treats missing fields as empty strings.
type EmailInput struct {
	Sender  string
	Subject string
	Snippet string
}

// RiskLevel is the three-tier classification derived from the numeric score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskLevelForScore maps a score to a risk level. The boundaries are part
// of the caller-facing contract: >=65 high, 35..64 medium, <35 low.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 65:
		return RiskHigh
	case score >= 35:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Label is the binary verdict of a remote classification model.
type Label string

const (
	LabelPhishing Label = "PHISHING"
	LabelSafe     Label = "SAFE"
)

// ClassificationResult is the normalized output of one remote model response.
type ClassificationResult struct {
	PhishingScore float64 // 0..100
	Confidence    float64 // 0..100, raw score of the matched prediction
	Label         Label
	ModelUsed     string
}

// ScoreDetails mirrors the raw numeric fields of a scoring run for
// downstream consumers that need them separately from presentation text.
type ScoreDetails struct {
	MLScore      float64
	MLConfidence float64
	UsedAI       bool
}

// ScoringResult is the final, caller-facing record of one scoring call.
// Score is always an integer in [0,100], RiskLevel is derived from it,
// and Reasons is never empty.
type ScoringResult struct {
	Score          int
	RiskLevel      RiskLevel
	ConfidenceText string
	UsedRemote     bool
	Reasons        []string
	Details        ScoreDetails
}

// ModelKind identifies the task a remote model performs.
type ModelKind string

// ModelKindClassification is the only kind the engine currently issues.
const ModelKindClassification ModelKind = "classification"

// ModelDescriptor is the static configuration of one remote model.
// The configured order defines failover priority.
type ModelDescriptor struct {
	Name     string
	Endpoint string
	Kind     ModelKind
}

// CacheEntry is a cached verdict for a sender address.
type CacheEntry struct {
	Sender    string
	Result    ScoringResult
	LastSeen  time.Time
	ExpiresAt time.Time
}

// RemoteState is the only mutable state shared across scoring calls in a
// session: the credential, the session availability decision, and the
// sticky index of the last known-good model. Active-model advancement is
// best-effort routing, not a strict protocol guarantee; concurrent calls
// may interleave index mutation and self-heal on a later call.
type RemoteState struct {
	mu          sync.Mutex
	credential  string
	available   bool
	activeModel int
}

// NewRemoteState creates a fresh session state.
func NewRemoteState(credential string) *RemoteState {
	return &RemoteState{credential: credential}
}

// Credential returns the configured API credential, empty when absent.
func (s *RemoteState) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// SetCredential replaces the API credential.
func (s *RemoteState) SetCredential(credential string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = credential
}

// Available reports whether the session-start probe found a reachable model.
func (s *RemoteState) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// SetAvailable records the session availability decision.
func (s *RemoteState) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = available
}

// ActiveModel returns the sticky index of the last known-good model.
func (s *RemoteState) ActiveModel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeModel
}

// SetActiveModel records a new sticky model index.
func (s *RemoteState) SetActiveModel(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeModel = index
}
