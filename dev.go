package sessiontoken

// DevBypassClaims holds attributes used when binding synthetic claims in dev mode.
type DevBypassClaims struct {
	Service string
	Role    string
	Meta    string
	Session string
}

// ToCallerClaims converts the dev bypass configuration into caller claims.
func (d DevBypassClaims) ToCallerClaims(now Timestamp) CallerClaims {
	claims := &Claims{
		Timestamp: now,
		Service:   d.Service,
		Role:      d.Role,
		Meta:      d.Meta,
	}
	if d.Session != "" {
		claims.Session = SessionValue(d.Session)
	}
	return CallerClaims{
		Claims:    claims,
		DevBypass: true,
	}
}

// DefaultDevBypassClaims returns a baseline set of claims suitable for local development.
func DefaultDevBypassClaims(service string) DevBypassClaims {
	svc := service
	if svc == "" {
		svc = "dev.local"
	}
	return DevBypassClaims{
		Service: svc,
		Role:    "dev-bypass",
	}
}
