package sessiontoken

import "errors"

// Secret is the configured signing secret: either a Literal or a Provider.
type Secret interface {
	resolve() (string, error)
}

// Literal is a secret given by value.
type Literal string

func (l Literal) resolve() (string, error) {
	return string(l), nil
}

// Provider produces the secret when the configuration is loaded.
// It is invoked once per Configure call and never per verification.
type Provider func() (string, error)

func (p Provider) resolve() (string, error) {
	if p == nil {
		return "", errors.New("nil secret provider")
	}
	return p()
}

// Resolve returns the plain secret. A nil Secret resolves to the empty string.
func Resolve(s Secret) (string, error) {
	if s == nil {
		return "", nil
	}
	value, err := s.resolve()
	if err != nil {
		return "", newError(ErrCodeSecretUnavailable, err)
	}
	return value, nil
}
