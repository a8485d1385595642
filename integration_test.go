package sessiontoken

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestSecretManagerIntegration(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("RUN_INTEGRATION_TESTS not set to true")
	}

	name := strings.TrimSpace(os.Getenv("SESSION_TOKEN_SECRET_NAME"))
	if name == "" {
		t.Fatal("SESSION_TOKEN_SECRET_NAME environment variable required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts, err := Configure(Config{
		Secret: SecretManagerProvider(ctx, SecretManagerConfig{Name: name}),
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if opts.KeyID() == "" {
		t.Fatal("managed secret is empty")
	}

	token, err := opts.Issue(Claims{Timestamp: At(time.Now()), Service: "integration"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := opts.Verify(string(token)); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
