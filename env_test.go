package sessiontoken

import (
	"context"
	"errors"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwa"
)

func TestLoadEnvConfigFrom_Defaults(t *testing.T) {
	cfg, err := LoadEnvConfigFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadEnvConfigFrom: %v", err)
	}
	if cfg.LimitTime != DefaultLimitTime || cfg.Algorithm != "HS256" || cfg.Secret != "" || cfg.SecretName != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvConfigFrom_Values(t *testing.T) {
	cfg, err := LoadEnvConfigFrom(map[string]string{
		"SESSION_TOKEN_LIMIT_TIME": "24",
		"SESSION_TOKEN_SECRET":     "env-secret",
		"SESSION_TOKEN_ALGORITHM":  "HS512",
	})
	if err != nil {
		t.Fatalf("LoadEnvConfigFrom: %v", err)
	}
	config, err := cfg.Config(context.Background())
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if config.LimitTime != 24 || config.Algorithm != jwa.HS512 {
		t.Fatalf("unexpected config: %+v", config)
	}
	if lit, ok := config.Secret.(Literal); !ok || lit != "env-secret" {
		t.Fatalf("unexpected secret: %#v", config.Secret)
	}
}

func TestLoadEnvConfigFrom_InvalidLimit(t *testing.T) {
	_, err := LoadEnvConfigFrom(map[string]string{"SESSION_TOKEN_LIMIT_TIME": "a week"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestEnvConfig_InvalidAlgorithm(t *testing.T) {
	_, err := EnvConfig{Algorithm: "RS256"}.Config(context.Background())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestEnvConfig_SecretNameUsesProvider(t *testing.T) {
	cfg, err := EnvConfig{
		Secret:     "ignored",
		SecretName: "projects/p/secrets/s",
		Algorithm:  "HS256",
	}.Config(context.Background())
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if _, ok := cfg.Secret.(Provider); !ok {
		t.Fatalf("expected provider secret, got %T", cfg.Secret)
	}
}

func TestLoadEnvConfig_ProcessEnvironment(t *testing.T) {
	t.Setenv("SESSION_TOKEN_LIMIT_TIME", "12")
	t.Setenv("SESSION_TOKEN_SECRET", "from-env")
	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("LoadEnvConfig: %v", err)
	}
	if cfg.LimitTime != 12 || cfg.Secret != "from-env" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
