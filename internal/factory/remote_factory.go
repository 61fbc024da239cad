package factory

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mikey/phish-guard/internal/adapters/hfinference"
	"github.com/mikey/phish-guard/internal/adapters/openai"
	"github.com/mikey/phish-guard/internal/config"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/credentials"
	"go.uber.org/zap"
)

// RemoteFactory creates remote classifiers and the shared session state
type RemoteFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	state  *core.RemoteState
}

// NewRemoteFactory creates a new remote factory. The session state is
// created here, once, with the resolved credential.
func NewRemoteFactory(cfg *config.Config, logger *zap.Logger) *RemoteFactory {
	remoteCfg := cfg.GetRemote()

	var source core.CredentialSource
	if remoteCfg.APIToken != "" {
		source = credentials.NewStaticSource(remoteCfg.APIToken)
	} else {
		source = credentials.NewEnvSource(remoteCfg.CredentialEnv)
	}

	credential, err := source.Credential(context.Background())
	if err != nil {
		logger.Warn("Failed to read credential, running heuristic-only", zap.Error(err))
		credential = ""
	}
	if credential == "" {
		logger.Info("No API credential configured, remote classification disabled")
	}

	return &RemoteFactory{
		cfg:    cfg,
		logger: logger,
		state:  core.NewRemoteState(credential),
	}
}

// State returns the shared session state
func (f *RemoteFactory) State() *core.RemoteState {
	return f.state
}

// CreateRemoteClassifier creates a classifier based on the configuration
func (f *RemoteFactory) CreateRemoteClassifier() (core.RemoteClassifier, error) {
	remoteCfg := f.cfg.GetRemote()

	switch remoteCfg.Provider {
	case "huggingface":
		models := make([]core.ModelDescriptor, 0, len(remoteCfg.Models))
		for _, name := range remoteCfg.Models {
			models = append(models, core.ModelDescriptor{
				Name:     name,
				Endpoint: strings.TrimRight(remoteCfg.APIBase, "/") + "/" + name,
				Kind:     core.ModelKindClassification,
			})
		}
		httpClient := &http.Client{Timeout: remoteCfg.Timeout}
		return hfinference.NewClient(httpClient, models, f.state, f.logger)
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		// The OpenAI SDK carries its own key; the session credential only
		// gates whether the remote path is attempted at all.
		if f.state.Credential() == "" {
			f.state.SetCredential(openaiCfg.APIKey)
		}
		return openai.NewClient(
			openaiCfg.APIKey,
			openaiCfg.ModelName,
			openaiCfg.MaxTokens,
			openaiCfg.Temperature,
			openaiCfg.TopP,
			f.state,
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported remote provider: %s", remoteCfg.Provider)
	}
}
