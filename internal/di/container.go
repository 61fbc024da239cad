package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phish-guard/internal/config"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/explain"
	"github.com/mikey/phish-guard/internal/factory"
	"github.com/mikey/phish-guard/internal/heuristic"
	"github.com/mikey/phish-guard/internal/logging"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewRemoteFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}

	// Register remote classifier and shared session state
	if err := container.Provide(func(f *factory.RemoteFactory) (core.RemoteClassifier, error) {
		return f.CreateRemoteClassifier()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.RemoteFactory) *core.RemoteState {
		return f.State()
	}); err != nil {
		return nil, err
	}

	// Register the local scoring components
	if err := container.Provide(func() core.HeuristicEvaluator {
		return heuristic.NewEvaluator()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func() core.ExplanationGenerator {
		return explain.NewGenerator()
	}); err != nil {
		return nil, err
	}

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) (time.Duration, error) {
		return f.GetCacheTTL()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) bool {
		return f.IsCacheEnabled()
	}); err != nil {
		return nil, err
	}

	// Register trusted domains
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) []string {
		trustedDomains := cfg.GetStringSlice("scoring.trusted_domains")
		if len(trustedDomains) > 0 {
			logger.Info("Loaded trusted domains", zap.Strings("domains", trustedDomains))
		}
		return trustedDomains
	}); err != nil {
		return nil, err
	}

	// Register scoring service
	if err := container.Provide(core.NewScoringService); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (core.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
