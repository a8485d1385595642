package sessiontoken

import (
	"errors"
	"fmt"
)

// ErrorCode represents token error categories.
type ErrorCode string

const (
	ErrCodeInvalidKey        ErrorCode = "invalid_key"
	ErrCodeMalformed         ErrorCode = "malformed"
	ErrCodeInvalidSignature  ErrorCode = "invalid_signature"
	ErrCodeExpired           ErrorCode = "token_expired"
	ErrCodeUnauthorized      ErrorCode = "unauthorized"
	ErrCodeInvalidConfig     ErrorCode = "invalid_config"
	ErrCodeSecretUnavailable ErrorCode = "secret_unavailable"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeInvalidKey:        "Invalid key",
	ErrCodeMalformed:         "Malformed token",
	ErrCodeInvalidSignature:  "Invalid signature",
	ErrCodeExpired:           "Token expired",
	ErrCodeUnauthorized:      "Unauthorized",
	ErrCodeInvalidConfig:     "Invalid configuration",
	ErrCodeSecretUnavailable: "Secret unavailable",
}

// Sentinels for errors.Is comparisons. Any *Error matches the sentinel with the same code.
var (
	ErrInvalidKey        = &Error{Code: ErrCodeInvalidKey}
	ErrMalformed         = &Error{Code: ErrCodeMalformed}
	ErrInvalidSignature  = &Error{Code: ErrCodeInvalidSignature}
	ErrExpired           = &Error{Code: ErrCodeExpired}
	ErrUnauthorized      = &Error{Code: ErrCodeUnauthorized}
	ErrInvalidConfig     = &Error{Code: ErrCodeInvalidConfig}
	ErrSecretUnavailable = &Error{Code: ErrCodeSecretUnavailable}
)

// Error wraps token errors with a stable code and message.
type Error struct {
	Code    ErrorCode
	Message string
	// Key names the offending claims key for ErrCodeInvalidKey.
	Key string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		msg, ok := errorMessages[e.Code]
		if !ok {
			msg = string(e.Code)
		}
		base = msg
	}
	if e.Key != "" {
		base = fmt.Sprintf("%s %q", base, e.Key)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Reason returns the outward reason string for the error code.
func (e *Error) Reason() string {
	if msg, ok := errorMessages[e.Code]; ok {
		return msg
	}
	return string(e.Code)
}

func newError(code ErrorCode, err error) error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

func invalidKey(name string) error {
	return &Error{Code: ErrCodeInvalidKey, Message: errorMessages[ErrCodeInvalidKey], Key: name}
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a token error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
