package sessiontoken

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig is the environment form of Config.
type EnvConfig struct {
	LimitTime int    `env:"SESSION_TOKEN_LIMIT_TIME" envDefault:"168"`
	Secret    string `env:"SESSION_TOKEN_SECRET"`
	// SecretName is a Secret Manager resource; it takes precedence over Secret.
	SecretName string `env:"SESSION_TOKEN_SECRET_NAME"`
	Algorithm  string `env:"SESSION_TOKEN_ALGORITHM" envDefault:"HS256"`
}

// LoadEnvConfig reads EnvConfig from the process environment.
func LoadEnvConfig() (EnvConfig, error) {
	cfg, err := env.ParseAs[EnvConfig]()
	if err != nil {
		return EnvConfig{}, newError(ErrCodeInvalidConfig, err)
	}
	return cfg, nil
}

// LoadEnvConfigFrom reads EnvConfig from the given variables instead of the process environment.
func LoadEnvConfigFrom(environ map[string]string) (EnvConfig, error) {
	cfg, err := env.ParseAsWithOptions[EnvConfig](env.Options{Environment: environ})
	if err != nil {
		return EnvConfig{}, newError(ErrCodeInvalidConfig, err)
	}
	return cfg, nil
}

// Config converts the environment settings into a Config. The Secret Manager
// fetch, if any, happens later inside Configure.
func (e EnvConfig) Config(ctx context.Context) (Config, error) {
	alg, err := ParseAlgorithm(e.Algorithm)
	if err != nil {
		return Config{}, newError(ErrCodeInvalidConfig, fmt.Errorf("SESSION_TOKEN_ALGORITHM: %w", err))
	}
	cfg := Config{
		LimitTime: e.LimitTime,
		Secret:    Literal(e.Secret),
		Algorithm: alg,
	}
	if e.SecretName != "" {
		cfg.Secret = SecretManagerProvider(ctx, SecretManagerConfig{Name: e.SecretName})
	}
	return cfg, nil
}
