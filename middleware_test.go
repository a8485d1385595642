package sessiontoken

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingHandler struct {
	errs []error
}

func (h *recordingHandler) Errors(w http.ResponseWriter, _ *http.Request, err error) {
	h.errs = append(h.errs, err)
	w.WriteHeader(http.StatusTeapot)
}

func claimsEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(claims.Service + "/" + claims.Role))
	})
}

func newMiddlewareFixture(t *testing.T, now time.Time) (*Options, *recordingHandler) {
	t.Helper()
	handler := &recordingHandler{}
	opts := newTestOptions(t, Config{
		Secret:    Literal("s3cret"),
		LimitTime: 1,
		Handler:   handler,
		Clock:     fixedClock(now),
	})
	return opts, handler
}

func TestMiddleware_Accepts(t *testing.T) {
	opts, handler := newMiddlewareFixture(t, time.UnixMilli(sampleMillis))
	token, _ := opts.Issue(sampleClaims())

	for _, header := range []string{string(token), "Bearer " + string(token)} {
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		Middleware(opts, WithLogger(discardLogger()))(claimsEcho()).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		if rec.Body.String() != "my-api/user" {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	}
	if len(handler.errs) != 0 {
		t.Fatalf("unexpected handler calls: %v", handler.errs)
	}
}

func TestMiddleware_Rejects(t *testing.T) {
	issued := time.UnixMilli(sampleMillis)
	opts, _ := newMiddlewareFixture(t, issued)
	token, _ := opts.Issue(sampleClaims())
	expiredOpts, _ := newMiddlewareFixture(t, issued.Add(2*time.Hour))

	cases := []struct {
		name    string
		opts    *Options
		headers []string
		code    ErrorCode
	}{
		{name: "missing", opts: opts, code: ErrCodeUnauthorized},
		{name: "multiple", opts: opts, headers: []string{string(token), string(token)}, code: ErrCodeUnauthorized},
		{name: "empty", opts: opts, headers: []string{"Bearer "}, code: ErrCodeUnauthorized},
		{name: "garbage", opts: opts, headers: []string{"not a token"}, code: ErrCodeMalformed},
		{name: "forged", opts: opts, headers: []string{ToTextSafe(append([]byte(`{"timestamp":1,"session":null,"service":"x","role":"admin","meta":""}`), make([]byte, 32)...))}, code: ErrCodeInvalidSignature},
		{name: "expired", opts: expiredOpts, headers: []string{string(token)}, code: ErrCodeExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := &recordingHandler{}
			tc.opts.handler = handler

			req := httptest.NewRequest(http.MethodGet, "/profile", nil)
			for _, h := range tc.headers {
				req.Header.Add("Authorization", h)
			}
			rec := httptest.NewRecorder()
			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
			Middleware(tc.opts, WithLogger(discardLogger()))(next).ServeHTTP(rec, req)

			if called {
				t.Fatal("next handler called for rejected request")
			}
			if rec.Code != http.StatusTeapot {
				t.Fatalf("unexpected status: %d", rec.Code)
			}
			if len(handler.errs) != 1 {
				t.Fatalf("expected one handler call, got %d", len(handler.errs))
			}
			if got := CodeOf(handler.errs[0]); got != tc.code {
				t.Fatalf("unexpected reason: %s (%v)", got, handler.errs[0])
			}
		})
	}
}

func TestMiddleware_UnauthorizedReason(t *testing.T) {
	opts, handler := newMiddlewareFixture(t, time.UnixMilli(sampleMillis))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	Middleware(opts, WithLogger(discardLogger()))(claimsEcho()).ServeHTTP(httptest.NewRecorder(), req)

	var tokErr *Error
	if len(handler.errs) != 1 || !errors.As(handler.errs[0], &tokErr) {
		t.Fatalf("expected *Error, got %v", handler.errs)
	}
	if tokErr.Reason() != "Unauthorized" {
		t.Fatalf("unexpected reason: %s", tokErr.Reason())
	}
}

func TestDefaultErrorHandler(t *testing.T) {
	opts := newTestOptions(t, Config{Secret: Literal("s3cret")})
	for _, header := range []string{"", "garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		Middleware(opts, WithLogger(discardLogger()))(claimsEcho()).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["error"] != "Unauthorized" {
			t.Fatalf("unexpected body: %v", body)
		}
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	opts, _ := newMiddlewareFixture(t, time.UnixMilli(sampleMillis))
	token, _ := opts.Issue(sampleClaims())
	mw := Middleware(opts, WithMetrics(metrics), WithLogger(discardLogger()))(claimsEcho())

	for _, header := range []string{string(token), string(token), "", "%%%"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		mw.ServeHTTP(httptest.NewRecorder(), req)
	}

	expect := map[string]float64{
		"accepted":     2,
		"unauthorized": 1,
		"malformed":    1,
	}
	for result, want := range expect {
		if got := testutil.ToFloat64(metrics.verifications.WithLabelValues(result)); got != want {
			t.Fatalf("%s: got %v, want %v", result, got, want)
		}
	}
}

func TestMiddleware_DevBypass(t *testing.T) {
	opts, handler := newMiddlewareFixture(t, time.UnixMilli(sampleMillis))
	var caller CallerClaims
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		caller, _ = CallerClaimsFromContext(r.Context())
	})
	bypass := DefaultDevBypassClaims("")
	bypass.Session = "dev-session"
	Middleware(opts, WithDevBypass(bypass), WithLogger(discardLogger()))(next).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !caller.DevBypass || caller.Claims == nil {
		t.Fatalf("expected dev bypass claims, got %+v", caller)
	}
	want := &Claims{
		Timestamp: Millis(sampleMillis),
		Session:   SessionValue("dev-session"),
		Service:   "dev.local",
		Role:      "dev-bypass",
	}
	if !reflect.DeepEqual(caller.Claims, want) {
		t.Fatalf("unexpected claims: %+v", caller.Claims)
	}
	if len(handler.errs) != 0 {
		t.Fatalf("unexpected handler calls: %v", handler.errs)
	}
}

func TestMiddleware_NilOptionsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Middleware(nil)
}

func TestCallerClaimsFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ClaimsFromContext(req.Context()); ok {
		t.Fatal("expected no claims")
	}
}

func TestBindCallerClaims(t *testing.T) {
	claims := sampleClaims()
	ctx := BindCallerClaims(httptest.NewRequest(http.MethodGet, "/", nil).Context(), CallerClaims{Claims: &claims})

	caller, ok := CallerClaimsFromContext(ctx)
	if !ok || caller.DevBypass || caller.Claims != &claims {
		t.Fatalf("unexpected caller: %+v", caller)
	}
	got, ok := ClaimsFromContext(ctx)
	if !ok || got.Service != "my-api" {
		t.Fatalf("unexpected claims: %+v", got)
	}
	if _, ok := ClaimsFromContext(BindCallerClaims(ctx, CallerClaims{DevBypass: true})); ok {
		t.Fatal("expected no claims for empty caller")
	}
}
