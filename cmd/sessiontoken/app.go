package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	sessiontoken "github.com/bionicotaku/lingo-utils-sessiontoken"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:  "sessiontoken",
		Usage: "Issue and verify HMAC session tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to .env file",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "secret",
				Usage: "Signing secret (overrides SESSION_TOKEN_SECRET)",
			},
			&cli.IntFlag{
				Name:  "limit-time",
				Usage: "Validity window in hours (overrides SESSION_TOKEN_LIMIT_TIME)",
			},
			&cli.StringFlag{
				Name:  "algorithm",
				Usage: "HS256, HS384 or HS512 (overrides SESSION_TOKEN_ALGORITHM)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			issueCommand(),
			verifyCommand(),
			keygenCommand(),
			serveCommand(),
		},
		Before: func(c *cli.Context) error {
			return loadEnvFile(c.String("env"))
		},
	}
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

// configure builds options from the environment, with global flags taking precedence.
func configure(c *cli.Context) (*sessiontoken.Options, error) {
	envCfg, err := sessiontoken.LoadEnvConfig()
	if err != nil {
		return nil, err
	}
	if c.IsSet("secret") {
		envCfg.Secret = c.String("secret")
		envCfg.SecretName = ""
	}
	if c.IsSet("limit-time") {
		envCfg.LimitTime = c.Int("limit-time")
	}
	if c.IsSet("algorithm") {
		envCfg.Algorithm = c.String("algorithm")
	}

	cfg, err := envCfg.Config(c.Context)
	if err != nil {
		return nil, err
	}
	cfg.Logger = newLogger(c)
	return sessiontoken.Configure(cfg)
}

func issueCommand() *cli.Command {
	return &cli.Command{
		Name:  "issue",
		Usage: "Issue a token stamped with the current time",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "service", Usage: "Issuing service identifier", Required: true},
			&cli.StringFlag{Name: "role", Usage: "Caller role"},
			&cli.StringFlag{Name: "meta", Usage: "Free-form metadata"},
			&cli.StringFlag{Name: "session", Usage: "Session value (null when empty)"},
			&cli.BoolFlag{Name: "new-session", Usage: "Generate a random session value"},
		},
		Action: func(c *cli.Context) error {
			opts, err := configure(c)
			if err != nil {
				return err
			}
			claims := sessiontoken.Claims{
				Timestamp: sessiontoken.At(time.Now()),
				Service:   c.String("service"),
				Role:      c.String("role"),
				Meta:      c.String("meta"),
			}
			switch {
			case c.Bool("new-session"):
				claims.Session = sessiontoken.SessionValue(uuid.NewString())
			case c.String("session") != "":
				claims.Session = sessiontoken.SessionValue(c.String("session"))
			}
			token, err := opts.Issue(claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify a token and print its claims",
		ArgsUsage: "<token>",
		Action: func(c *cli.Context) error {
			token := c.Args().First()
			if token == "" {
				return errors.New("token argument is required")
			}
			opts, err := configure(c)
			if err != nil {
				return err
			}
			claims, err := opts.Verify(token)
			if err != nil {
				return fmt.Errorf("verification failed (%s): %w", sessiontoken.CodeOf(err), err)
			}
			printClaims(c, opts, claims)
			return nil
		},
	}
}

func keygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a random signing secret",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "bytes", Usage: "Secret length in bytes", Value: 32},
		},
		Action: func(c *cli.Context) error {
			n := c.Int("bytes")
			if n < 16 {
				return fmt.Errorf("secret must be at least 16 bytes, got %d", n)
			}
			buf := make([]byte, n)
			if _, err := rand.Read(buf); err != nil {
				return fmt.Errorf("read random bytes: %w", err)
			}
			secret := base64.RawURLEncoding.EncodeToString(buf)
			kid, err := sessiontoken.Thumbprint(secret)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "secret : %s\n", secret)
			fmt.Fprintf(c.App.Writer, "key_id : %s\n", kid)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a demo HTTP server protected by the session token middleware",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address", Value: ":8080"},
		},
		Action: func(c *cli.Context) error {
			opts, err := configure(c)
			if err != nil {
				return err
			}
			logger := newLogger(c)
			registry := prometheus.NewRegistry()
			handler := newServeMux(opts, sessiontoken.NewMetrics(registry), registry, logger)

			srv := &http.Server{
				Addr:              c.String("addr"),
				Handler:           handler,
				ReadHeaderTimeout: 5 * time.Second,
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", slog.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newServeMux(opts *sessiontoken.Options, metrics *sessiontoken.Metrics, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	protect := sessiontoken.Middleware(opts,
		sessiontoken.WithMetrics(metrics),
		sessiontoken.WithLogger(logger),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/whoami", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := sessiontoken.ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(claimsView(claims))
	})))
	return mux
}

func claimsView(c *sessiontoken.Claims) map[string]any {
	ms, _ := c.Timestamp.Millis()
	var session any
	if c.Session != nil {
		session = *c.Session
	}
	return map[string]any{
		"timestamp": ms,
		"session":   session,
		"service":   c.Service,
		"role":      c.Role,
		"meta":      c.Meta,
	}
}

func printClaims(c *cli.Context, opts *sessiontoken.Options, claims sessiontoken.Claims) {
	w := c.App.Writer
	fmt.Fprintln(w, "== Session Token Verified ==")
	fmt.Fprintf(w, "timestamp    : %s\n", claims.Timestamp.Time().Format(time.RFC3339))
	if claims.Session != nil {
		fmt.Fprintf(w, "session      : %s\n", *claims.Session)
	} else {
		fmt.Fprintln(w, "session      : <null>")
	}
	fmt.Fprintf(w, "service      : %s\n", claims.Service)
	fmt.Fprintf(w, "role         : %s\n", claims.Role)
	fmt.Fprintf(w, "meta         : %s\n", claims.Meta)
	if exp, ok := opts.ExpiresAt(claims); ok {
		fmt.Fprintf(w, "expires_at   : %s\n", exp.Format(time.RFC3339))
	}
}
