package core

import (
	"context"
	"time"
)

// RemoteClassifier defines the interface for remote phishing classification
type RemoteClassifier interface {
	// Classify sends text to the remote model and returns a normalized result
	Classify(ctx context.Context, text string) (*ClassificationResult, error)

	// TestConnection probes the configured models once, in priority order,
	// and succeeds as soon as one of them answers
	TestConnection(ctx context.Context) error
}

// HeuristicEvaluator defines the interface for local rule-based scoring
type HeuristicEvaluator interface {
	// Evaluate scores an email against the fixed rule set, returning 0..100
	Evaluate(email EmailInput) int
}

// ExplanationGenerator defines the interface for building reason lists
type ExplanationGenerator interface {
	// Reasons returns 1..5 human-readable reasons consistent with the score
	Reasons(score int, email EmailInput, usedRemote bool) []string
}

// CredentialSource defines the interface for reading the API credential.
// An absent credential is a valid state, reported as "" with a nil error.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// CacheRepository defines the interface for caching scoring verdicts
type CacheRepository interface {
	// Get retrieves a cached verdict for a sender
	Get(sender string) (*ScoringResult, bool)

	// Set stores a verdict for a sender
	Set(sender string, result *ScoringResult, ttl time.Duration)

	// Delete removes a cached verdict
	Delete(ctx context.Context, sender string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// EmailFilter defines the interface for the inbound mail surfaces
type EmailFilter interface {
	Start() error
	Stop() error
}
