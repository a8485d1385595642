package sessiontoken

import (
	"encoding/json"
	"net/http"
)

// ErrorHandler renders middleware rejections. err is always a *Error.
type ErrorHandler interface {
	Errors(w http.ResponseWriter, r *http.Request, err error)
}

// ErrorHandlerFunc adapts a function to the ErrorHandler interface.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// Errors implements ErrorHandler.
func (f ErrorHandlerFunc) Errors(w http.ResponseWriter, r *http.Request, err error) {
	f(w, r, err)
}

// DefaultErrorHandler answers every rejection with 401 and {"error":"Unauthorized"}.
var DefaultErrorHandler ErrorHandler = ErrorHandlerFunc(func(w http.ResponseWriter, _ *http.Request, _ error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": errorMessages[ErrCodeUnauthorized]})
})
