package core

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ScoringService is the hybrid scoring orchestrator. It chooses between the
// remote classifier and the local rule evaluator per call, maps the score to
// a risk level and attaches the explanation. Score never returns an error:
// every failure degrades to the heuristic path or to a fixed fallback result.
type ScoringService struct {
	remote         RemoteClassifier
	state          *RemoteState
	evaluator      HeuristicEvaluator
	explainer      ExplanationGenerator
	cache          CacheRepository
	logger         *zap.Logger
	cacheEnabled   bool
	cacheTTL       time.Duration
	trustedDomains []string
}

// NewScoringService creates a new scoring service
func NewScoringService(
	remote RemoteClassifier,
	state *RemoteState,
	evaluator HeuristicEvaluator,
	explainer ExplanationGenerator,
	cache CacheRepository,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	trustedDomains []string,
) *ScoringService {
	return &ScoringService{
		remote:         remote,
		state:          state,
		evaluator:      evaluator,
		explainer:      explainer,
		cache:          cache,
		logger:         logger,
		cacheEnabled:   cacheEnabled,
		cacheTTL:       cacheTTL,
		trustedDomains: trustedDomains,
	}
}

// isDomainTrusted checks if the sender's domain is in the trusted list
func (s *ScoringService) isDomainTrusted(sender string) bool {
	parts := strings.Split(sender, "@")
	if len(parts) != 2 {
		return false
	}
	domain := strings.ToLower(parts[1])

	for _, trusted := range s.trustedDomains {
		if strings.EqualFold(domain, trusted) {
			return true
		}
	}
	return false
}

// Score assigns a phishing-likelihood score to an email. The returned
// result is always well-formed, for every input.
func (s *ScoringService) Score(ctx context.Context, email EmailInput) (result *ScoringResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scoring failed internally", zap.Any("panic", r))
			result = degradedResult()
		}
	}()

	if s.isDomainTrusted(email.Sender) {
		s.logger.Info("Skipping phishing check for trusted domain",
			zap.String("sender", email.Sender))
		return &ScoringResult{
			Score:          0,
			RiskLevel:      RiskLow,
			ConfidenceText: "Sender domain is trusted",
			UsedRemote:     false,
			Reasons:        []string{"Sender domain is on the trusted list"},
			Details:        ScoreDetails{},
		}
	}

	if s.cacheEnabled && s.cache != nil {
		if cached, ok := s.cache.Get(email.Sender); ok {
			s.logger.Debug("Cache hit for sender", zap.String("sender", email.Sender))
			return cached
		}
	}

	usedRemote := false
	var classification *ClassificationResult
	if s.remote != nil && s.state.Available() && s.state.Credential() != "" {
		text := fmt.Sprintf("From: %s\nSubject: %s\n%s", email.Sender, email.Subject, email.Snippet)
		cls, err := s.remote.Classify(ctx, text)
		if err != nil {
			// Fallback is per call only: one failed request does not flip
			// availability off for the rest of the session.
			s.logger.Warn("Remote classification failed, falling back to rules",
				zap.Error(err))
		} else {
			classification = cls
			usedRemote = true
		}
	}

	var score int
	if usedRemote {
		score = clampScore(int(math.Round(classification.PhishingScore)))
	} else {
		score = clampScore(s.evaluator.Evaluate(email))
	}

	level := RiskLevelForScore(score)
	result = &ScoringResult{
		Score:          score,
		RiskLevel:      level,
		ConfidenceText: confidenceText(level, usedRemote, classification),
		UsedRemote:     usedRemote,
		Reasons:        s.explainer.Reasons(score, email, usedRemote),
	}
	if usedRemote {
		result.Details = ScoreDetails{
			MLScore:      classification.PhishingScore,
			MLConfidence: classification.Confidence,
			UsedAI:       true,
		}
	} else {
		result.Details = ScoreDetails{MLScore: float64(score)}
	}

	if s.cacheEnabled && s.cache != nil {
		s.cache.Set(email.Sender, result, s.cacheTTL)
	}

	s.logger.Debug("Scored email",
		zap.String("sender", email.Sender),
		zap.Int("score", score),
		zap.String("risk_level", string(level)),
		zap.Bool("used_remote", usedRemote))

	return result
}

// clampScore bounds a score to the closed interval [0,100]
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// confidenceText derives the presentation text from risk level and mode
func confidenceText(level RiskLevel, usedRemote bool, cls *ClassificationResult) string {
	if usedRemote && cls != nil {
		switch level {
		case RiskHigh:
			return fmt.Sprintf("AI: phishing (%.0f%% confidence)", cls.Confidence)
		case RiskMedium:
			return fmt.Sprintf("AI: uncertain (%.0f%% confidence)", cls.Confidence)
		default:
			return fmt.Sprintf("AI: safe (%.0f%%)", 100-cls.Confidence)
		}
	}

	switch level {
	case RiskHigh:
		return "High risk - multiple phishing indicators found"
	case RiskMedium:
		return "Some suspicious patterns detected"
	default:
		return "Low risk - no strong phishing indicators"
	}
}

// degradedResult is the fixed fallback when the scoring path itself faults
func degradedResult() *ScoringResult {
	return &ScoringResult{
		Score:          50,
		RiskLevel:      RiskMedium,
		ConfidenceText: "unable to analyze",
		UsedRemote:     false,
		Reasons:        []string{"analysis error"},
		Details:        ScoreDetails{MLScore: 50},
	}
}
