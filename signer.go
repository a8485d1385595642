package sessiontoken

import (
	"crypto/hmac"
	"fmt"
	"time"
)

// Token is the text-safe form of signed claims: base64url(canonical claims || mac).
type Token string

// String implements fmt.Stringer.
func (t Token) String() string {
	return string(t)
}

// Issue signs claims with the resolved secret.
func (o *Options) Issue(c Claims) (Token, error) {
	payload, err := Encode(c)
	if err != nil {
		return "", err
	}
	return o.pack(payload), nil
}

// IssueMap validates an untrusted claims map and signs it.
func (o *Options) IssueMap(m Map) (Token, error) {
	payload, err := EncodeMap(m)
	if err != nil {
		return "", err
	}
	return o.pack(payload), nil
}

// Verify checks the token signature and expiry and returns its claims.
// It reads the clock and nothing else, so concurrent calls need no coordination.
func (o *Options) Verify(token string) (Claims, error) {
	data, err := FromTextSafe(token)
	if err != nil {
		return Claims{}, err
	}
	if len(data) < o.macSize {
		return Claims{}, newError(ErrCodeMalformed, fmt.Errorf("token shorter than %d byte signature", o.macSize))
	}

	split := len(data) - o.macSize
	payload, mac := data[:split], data[split:]
	if !hmac.Equal(mac, o.sign(payload)) {
		return Claims{}, newError(ErrCodeInvalidSignature, nil)
	}

	claims, err := Decode(payload)
	if err != nil {
		return Claims{}, err
	}
	if expired(o.clock, claims.Timestamp, o.limitTime) {
		return Claims{}, newError(ErrCodeExpired, nil)
	}
	return claims, nil
}

// ExpiresAt reports when claims issued under these options stop verifying.
// The second result is false for an invalid timestamp.
func (o *Options) ExpiresAt(c Claims) (time.Time, bool) {
	return expiresAt(c.Timestamp, o.limitTime)
}

func (o *Options) pack(payload []byte) Token {
	mac := o.sign(payload)
	out := make([]byte, 0, len(payload)+len(mac))
	out = append(out, payload...)
	out = append(out, mac...)
	return Token(ToTextSafe(out))
}

func (o *Options) sign(payload []byte) []byte {
	h := hmac.New(o.newHash, o.secret)
	h.Write(payload)
	return h.Sum(nil)
}
