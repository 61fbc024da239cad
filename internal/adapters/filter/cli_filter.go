package filter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/phish-guard/internal/core"
	"go.uber.org/zap"
)

// CliFilter implements a command-line interface for phishing scoring
type CliFilter struct {
	service *core.ScoringService
	logger  *zap.Logger
	verbose bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(service *core.ScoringService, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	return &CliFilter{
		service: service,
		logger:  logger,
		verbose: verbose,
	}, nil
}

// ProcessEmail scores an email and displays the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email core.EmailInput) *core.ScoringResult {
	f.logger.Debug("Processing email", zap.String("sender", email.Sender))

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.Sender)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Snippet length: %d bytes\n", len(email.Snippet))

	if f.verbose {
		preview := email.Snippet
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nSnippet preview:\n%s\n", preview)
	}

	fmt.Printf("\n=== Analysis ===\n")
	startTime := time.Now()
	result := f.service.Score(ctx, email)
	duration := time.Since(startTime)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Score: %d/100\n", result.Score)
	fmt.Printf("Risk level: %s\n", result.RiskLevel)
	fmt.Printf("Confidence: %s\n", result.ConfidenceText)
	fmt.Printf("Used remote model: %t\n", result.UsedRemote)
	fmt.Printf("Reasons:\n  - %s\n", strings.Join(result.Reasons, "\n  - "))
	fmt.Printf("Processing time: %v\n", duration)

	return result
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
