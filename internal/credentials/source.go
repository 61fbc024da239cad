package credentials

import (
	"context"
	"os"
	"strings"
)

// EnvSource reads the API credential from an environment variable. An
// unset or empty variable is a valid, expected state reported as "".
type EnvSource struct {
	key string
}

// NewEnvSource creates a credential source backed by the given variable
func NewEnvSource(key string) *EnvSource {
	return &EnvSource{key: key}
}

// Credential returns the credential, or "" when absent
func (s *EnvSource) Credential(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(os.Getenv(s.key)), nil
}

// StaticSource serves a credential fixed at construction time, used when
// the token is supplied directly through configuration.
type StaticSource struct {
	token string
}

// NewStaticSource creates a source that always returns token
func NewStaticSource(token string) *StaticSource {
	return &StaticSource{token: strings.TrimSpace(token)}
}

// Credential returns the fixed credential, or "" when none was configured
func (s *StaticSource) Credential(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.token, nil
}
