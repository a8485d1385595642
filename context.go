package sessiontoken

import "context"

type callerClaimsKey struct{}

// CallerClaims is what Middleware binds to a request: the verified session
// token claims, or synthetic ones when DevBypass is set.
type CallerClaims struct {
	Claims    *Claims
	DevBypass bool
}

// BindCallerClaims returns a copy of ctx carrying caller.
func BindCallerClaims(ctx context.Context, caller CallerClaims) context.Context {
	return context.WithValue(ctx, callerClaimsKey{}, caller)
}

// CallerClaimsFromContext returns the caller bound by BindCallerClaims.
func CallerClaimsFromContext(ctx context.Context) (CallerClaims, bool) {
	if ctx == nil {
		return CallerClaims{}, false
	}
	caller, ok := ctx.Value(callerClaimsKey{}).(CallerClaims)
	return caller, ok
}

// ClaimsFromContext returns the session claims bound by Middleware.
// Handlers that must refuse dev bypass requests should use CallerClaimsFromContext.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	caller, ok := CallerClaimsFromContext(ctx)
	if !ok || caller.Claims == nil {
		return nil, false
	}
	return caller.Claims, true
}
