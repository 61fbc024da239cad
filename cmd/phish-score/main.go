package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/mikey/phish-guard/internal/config"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/explain"
	"github.com/mikey/phish-guard/internal/factory"
	"github.com/mikey/phish-guard/internal/heuristic"
	"github.com/mikey/phish-guard/internal/logging"
	"github.com/mikey/phish-guard/internal/whitelist"
	"go.uber.org/zap"
)

var (
	// Remote provider flags
	provider = flag.String("provider", "huggingface", "Remote provider (huggingface, openai)")
	apiBase  = flag.String("api-base", "https://api-inference.huggingface.co/models", "Inference API base URL")
	models   = flag.String("models", "", "Comma-separated model list, in failover priority order")
	apiToken = flag.String("api-token", "", "API token (empty means heuristic-only unless the credential env is set)")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Scoring flags
	trustedDomains = flag.String("trusted", "", "Comma-separated list of trusted sender domains")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	// Initialize the remote classifier and session state
	remoteFactory := factory.NewRemoteFactory(cfg, logger)
	classifier, err := remoteFactory.CreateRemoteClassifier()
	if err != nil {
		logger.Fatal("Failed to create remote classifier", zap.Error(err))
	}
	state := remoteFactory.State()

	// Parse trusted domains
	var trusted []string
	if *trustedDomains != "" {
		trusted = strings.Split(*trustedDomains, ",")
		for i, domain := range trusted {
			trusted[i] = strings.TrimSpace(domain)
		}
	} else {
		trusted = cfg.GetStringSlice("scoring.trusted_domains")
	}
	trustChecker := whitelist.NewChecker(trusted, logger)

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}

	email := core.EmailInput{
		Sender:  msg.Header.Get("From"),
		Subject: msg.Header.Get("Subject"),
		Snippet: string(bodyBytes),
	}

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.Sender)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Body length: %d bytes\n", len(email.Snippet))

	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetString("remote.provider"))

	startTime := time.Now()

	if trustChecker.IsTrusted(email.Sender) {
		fmt.Printf("\n=== Results ===\n")
		fmt.Printf("Score: 0/100 (sender domain is trusted)\n")
		fmt.Printf("Risk level: %s\n", core.RiskLow)
		fmt.Printf("Processing time: %v\n", time.Since(startTime))
		return
	}

	// Session-start probe: decides remote-vs-heuristic for this run.
	if state.Credential() != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := classifier.TestConnection(ctx); err != nil {
			logger.Warn("Remote endpoint unavailable, using heuristic scoring", zap.Error(err))
		}
		cancel()
	} else {
		logger.Info("No credential configured, using heuristic scoring")
	}

	service := core.NewScoringService(
		classifier,
		state,
		heuristic.NewEvaluator(),
		explain.NewGenerator(),
		nil,
		logger,
		false,
		0,
		trusted,
	)

	result := service.Score(context.Background(), email)
	duration := time.Since(startTime)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Score: %d/100\n", result.Score)
	fmt.Printf("Risk level: %s\n", result.RiskLevel)
	fmt.Printf("Confidence: %s\n", result.ConfidenceText)
	fmt.Printf("Used remote model: %t\n", result.UsedRemote)
	fmt.Printf("Reasons:\n")
	for _, reason := range result.Reasons {
		fmt.Printf("  - %s\n", reason)
	}
	fmt.Printf("ML score: %.2f, ML confidence: %.2f, used AI: %t\n",
		result.Details.MLScore, result.Details.MLConfidence, result.Details.UsedAI)
	fmt.Printf("Processing time: %v\n", duration)
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("remote.provider", *provider)
	v.Set("remote.api_base", *apiBase)
	if *apiToken != "" {
		v.Set("remote.api_token", *apiToken)
	}
	if *models != "" {
		names := strings.Split(*models, ",")
		for i, name := range names {
			names[i] = strings.TrimSpace(name)
		}
		v.Set("remote.models", names)
	}

	switch *provider {
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
	}

	if *trustedDomains != "" {
		domains := strings.Split(*trustedDomains, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("scoring.trusted_domains", domains)
	}

	return config.NewFromViper(v)
}
