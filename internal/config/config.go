package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/phish-guard/")
	v.AddConfigPath("$HOME/.phish-guard")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("PHISH_GUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Remote classification defaults
	v.SetDefault("remote.provider", "huggingface")
	v.SetDefault("remote.api_base", "https://api-inference.huggingface.co/models")
	v.SetDefault("remote.models", []string{
		"mrm8488/bert-tiny-finetuned-sms-spam-detection",
		"mshenoda/roberta-spam",
	})
	v.SetDefault("remote.api_token", "")
	v.SetDefault("remote.credential_env", "HF_API_TOKEN")
	v.SetDefault("remote.timeout", "15s")

	// OpenAI provider defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 200)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)

	// Scoring defaults
	v.SetDefault("scoring.trusted_domains", []string{})

	// Server defaults
	v.SetDefault("server.filter_type", "smtp")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_high_risk", false)
	v.SetDefault("server.headers.status", "X-Phishing-Status")
	v.SetDefault("server.headers.score", "X-Phishing-Score")
	v.SetDefault("server.headers.risk", "X-Phishing-Risk")
	v.SetDefault("server.headers.reason", "X-Phishing-Reason")
	v.SetDefault("server.upstream.address", "127.0.0.1")
	v.SetDefault("server.upstream.port", 10026)
	v.SetDefault("server.upstream.enabled", true)
	v.SetDefault("server.subject_prefix", "")
	v.SetDefault("server.modify_subject", false)

	// CLI filter defaults
	v.SetDefault("cli.verbose", false)

	// Cache defaults. Disabled by default: verdicts are per-call records
	// unless a deployment opts in to sender-level caching.
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/phish_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/phish_guard")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
