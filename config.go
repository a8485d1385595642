package sessiontoken

import (
	"crypto"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"math"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const (
	// DefaultLimitTime is the validity window in hours.
	DefaultLimitTime = 168
	defaultAlgorithm = jwa.HS256
	// MaxLimitTime is the largest window, in hours, that fits a time.Duration.
	MaxLimitTime = int(math.MaxInt64 / int64(time.Hour))
)

var macHashes = map[jwa.SignatureAlgorithm]func() hash.Hash{
	jwa.HS256: sha256.New,
	jwa.HS384: sha512.New384,
	jwa.HS512: sha512.New,
}

// Config holds caller-supplied settings. Zero fields take defaults.
type Config struct {
	// LimitTime is the validity window in hours, added to the claims timestamp.
	// Zero selects DefaultLimitTime, so a zero-hour window cannot be expressed.
	// Values above MaxLimitTime are rejected.
	LimitTime int
	// Secret is resolved once by Configure.
	Secret Secret
	// Handler receives middleware rejections.
	Handler ErrorHandler
	// Algorithm selects the HMAC digest: HS256, HS384 or HS512.
	Algorithm jwa.SignatureAlgorithm
	Clock     Clock
	Logger    *slog.Logger
}

// normalize sets default values for optional fields.
func (c *Config) normalize() {
	if c.LimitTime == 0 {
		c.LimitTime = DefaultLimitTime
	}
	if c.Secret == nil {
		c.Secret = Literal("")
	}
	if c.Handler == nil {
		c.Handler = DefaultErrorHandler
	}
	if c.Algorithm == "" {
		c.Algorithm = defaultAlgorithm
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// validate ensures the configuration is usable.
func (c Config) validate() error {
	if c.LimitTime < 0 {
		return fmt.Errorf("limit time must not be negative, got %d", c.LimitTime)
	}
	if c.LimitTime > MaxLimitTime {
		return fmt.Errorf("limit time must not exceed %d hours, got %d", MaxLimitTime, c.LimitTime)
	}
	if _, ok := macHashes[c.Algorithm]; !ok {
		return fmt.Errorf("unsupported algorithm %q: only HS256, HS384 and HS512 are allowed", c.Algorithm)
	}
	return nil
}

// Options is the effective, immutable configuration produced by Configure.
// It is safe for concurrent use.
type Options struct {
	limitTime int
	secret    []byte
	alg       jwa.SignatureAlgorithm
	newHash   func() hash.Hash
	macSize   int
	handler   ErrorHandler
	clock     Clock
	keyID     string
}

// Configure merges cfg over the defaults and resolves the secret exactly once.
// A failing secret provider is reported here and never during verification.
func Configure(cfg Config) (*Options, error) {
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, newError(ErrCodeInvalidConfig, err)
	}

	secret, err := Resolve(cfg.Secret)
	if err != nil {
		return nil, err
	}

	newHash := macHashes[cfg.Algorithm]
	opts := &Options{
		limitTime: cfg.LimitTime,
		secret:    []byte(secret),
		alg:       cfg.Algorithm,
		newHash:   newHash,
		macSize:   newHash().Size(),
		handler:   cfg.Handler,
		clock:     cfg.Clock,
	}
	if len(opts.secret) > 0 {
		if opts.keyID, err = thumbprint(opts.secret); err != nil {
			return nil, newError(ErrCodeInvalidConfig, err)
		}
	} else {
		cfg.Logger.Warn("session token secret is empty")
	}

	cfg.Logger.Info("session tokens configured",
		slog.String("algorithm", cfg.Algorithm.String()),
		slog.Int("limit_time_hours", cfg.LimitTime),
		slog.String("key_id", opts.keyID),
	)
	return opts, nil
}

// LimitTime returns the validity window in hours.
func (o *Options) LimitTime() int {
	return o.limitTime
}

// Algorithm returns the configured HMAC algorithm.
func (o *Options) Algorithm() jwa.SignatureAlgorithm {
	return o.alg
}

// Handler returns the configured error handler.
func (o *Options) Handler() ErrorHandler {
	return o.handler
}

// KeyID returns the RFC 7638 thumbprint of the secret, or "" for an empty secret.
func (o *Options) KeyID() string {
	return o.keyID
}

// ParseAlgorithm validates a textual algorithm name such as "HS256".
func ParseAlgorithm(name string) (jwa.SignatureAlgorithm, error) {
	var alg jwa.SignatureAlgorithm
	if err := alg.Accept(name); err != nil {
		return "", err
	}
	if _, ok := macHashes[alg]; !ok {
		return "", fmt.Errorf("unsupported algorithm %q", name)
	}
	return alg, nil
}

// Thumbprint returns the RFC 7638 key id of a symmetric secret.
func Thumbprint(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}
	return thumbprint([]byte(secret))
}

func thumbprint(secret []byte) (string, error) {
	key, err := jwk.FromRaw(secret)
	if err != nil {
		return "", fmt.Errorf("build jwk: %w", err)
	}
	sum, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("jwk thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sum), nil
}
