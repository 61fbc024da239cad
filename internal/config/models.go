package config

import "time"

// RemoteConfig represents the configuration for the remote classification client
type RemoteConfig struct {
	Provider      string
	APIBase       string
	Models        []string
	APIToken      string
	CredentialEnv string
	Timeout       time.Duration
}

// OpenAIConfig represents the configuration for the OpenAI provider
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GetRemote returns the remote client configuration
func (c *Config) GetRemote() RemoteConfig {
	timeout, err := c.GetDuration("remote.timeout")
	if err != nil {
		timeout = 15 * time.Second
	}
	return RemoteConfig{
		Provider:      c.GetString("remote.provider"),
		APIBase:       c.GetString("remote.api_base"),
		Models:        c.GetStringSlice("remote.models"),
		APIToken:      c.GetString("remote.api_token"),
		CredentialEnv: c.GetString("remote.credential_env"),
		Timeout:       timeout,
	}
}

// GetOpenAI returns the OpenAI provider configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}
