package sessiontoken

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// MiddlewareOption customizes Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	metrics   *Metrics
	logger    *slog.Logger
	devBypass *DevBypassClaims
}

// WithMetrics records verification outcomes.
func WithMetrics(m *Metrics) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for rejections.
func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.logger = l
	}
}

// WithDevBypass binds synthetic claims to every request without reading the header.
// Never enable outside local development.
func WithDevBypass(d DevBypassClaims) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.devBypass = &d
	}
}

// Middleware verifies the Authorization header and binds the claims to the request context.
// Requests with no header or more than one value are rejected as unauthorized.
// Every rejection is forwarded to the configured ErrorHandler.
func Middleware(opts *Options, mws ...MiddlewareOption) func(http.Handler) http.Handler {
	if opts == nil {
		panic("sessiontoken: middleware requires options")
	}
	cfg := middlewareConfig{logger: slog.Default()}
	for _, mw := range mws {
		mw(&cfg)
	}
	if cfg.devBypass != nil {
		cfg.logger.Warn("session token dev bypass enabled", slog.String("service", cfg.devBypass.Service))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.devBypass != nil {
				caller := cfg.devBypass.ToCallerClaims(At(opts.clock.Now()))
				next.ServeHTTP(w, r.WithContext(BindCallerClaims(r.Context(), caller)))
				return
			}

			token, err := authorizationToken(r.Header)
			if err == nil {
				var claims Claims
				if claims, err = opts.Verify(token); err == nil {
					cfg.metrics.observe("")
					caller := CallerClaims{Claims: &claims}
					next.ServeHTTP(w, r.WithContext(BindCallerClaims(r.Context(), caller)))
					return
				}
			}

			code := CodeOf(err)
			cfg.metrics.observe(code)
			cfg.logger.DebugContext(r.Context(), "session token rejected",
				slog.String("reason", string(code)),
				slog.String("path", r.URL.Path),
			)
			opts.handler.Errors(w, r, err)
		})
	}
}

func authorizationToken(h http.Header) (string, error) {
	values := h.Values(authorizationHeader)
	switch len(values) {
	case 0:
		return "", newError(ErrCodeUnauthorized, errors.New("missing authorization header"))
	case 1:
	default:
		return "", newError(ErrCodeUnauthorized, errors.New("multiple authorization headers"))
	}
	token := strings.TrimSpace(strings.TrimPrefix(values[0], bearerPrefix))
	if token == "" {
		return "", newError(ErrCodeUnauthorized, errors.New("empty authorization header"))
	}
	return token, nil
}
