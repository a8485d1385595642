package sessiontoken

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/crc32"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

const defaultSecretTimeout = 5 * time.Second

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// SecretManagerConfig describes a secret version stored in Google Secret Manager.
type SecretManagerConfig struct {
	// Name is projects/{project}/secrets/{secret}[/versions/{version}].
	// The version defaults to "latest".
	Name string
	// TokenSource authenticates calls. Application Default Credentials are used
	// when neither TokenSource nor HTTPClient is set.
	TokenSource oauth2.TokenSource
	// HTTPClient is the transport base. With a TokenSource it is wrapped by oauth2.
	HTTPClient    *http.Client
	Endpoint      string
	Timeout       time.Duration
	ClientOptions []option.ClientOption
}

func (c *SecretManagerConfig) normalize() {
	c.Name = strings.Trim(strings.TrimSpace(c.Name), "/")
	if c.Name != "" && !strings.Contains(c.Name, "/versions/") {
		c.Name += "/versions/latest"
	}
	if c.Endpoint != "" && !strings.HasSuffix(c.Endpoint, "/") {
		c.Endpoint += "/"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultSecretTimeout
	}
}

func (c SecretManagerConfig) validate() error {
	switch {
	case c.Name == "":
		return errors.New("secret name is required")
	case !strings.HasPrefix(c.Name, "projects/") || !strings.Contains(c.Name, "/secrets/"):
		return fmt.Errorf("secret name %q must look like projects/*/secrets/*", c.Name)
	}
	return nil
}

func (c SecretManagerConfig) clientOptions(ctx context.Context) []option.ClientOption {
	opts := append([]option.ClientOption(nil), c.ClientOptions...)
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	switch {
	case c.TokenSource != nil:
		if c.HTTPClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
		}
		opts = append(opts, option.WithHTTPClient(oauth2.NewClient(ctx, c.TokenSource)))
	case c.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	}
	return opts
}

// SecretManagerProvider returns a Provider that reads the configured secret version.
// The context bounds the fetch together with cfg.Timeout.
func SecretManagerProvider(ctx context.Context, cfg SecretManagerConfig) Provider {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg.normalize()
	return func() (string, error) {
		if err := cfg.validate(); err != nil {
			return "", err
		}
		fetchCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		svc, err := secretmanager.NewService(fetchCtx, cfg.clientOptions(fetchCtx)...)
		if err != nil {
			return "", fmt.Errorf("create secret manager client: %w", err)
		}
		resp, err := svc.Projects.Secrets.Versions.Access(cfg.Name).Context(fetchCtx).Do()
		if err != nil {
			return "", fmt.Errorf("access %s: %w", cfg.Name, err)
		}
		if resp.Payload == nil {
			return "", fmt.Errorf("access %s: empty payload", cfg.Name)
		}
		data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
		if err != nil {
			return "", fmt.Errorf("decode %s payload: %w", cfg.Name, err)
		}
		if want := resp.Payload.DataCrc32c; want != 0 {
			if got := int64(crc32.Checksum(data, castagnoli)); got != want {
				return "", fmt.Errorf("payload checksum mismatch for %s", cfg.Name)
			}
		}
		return string(data), nil
	}
}
