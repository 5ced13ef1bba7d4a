package driven

import "context"

// TokenProvider provides access tokens for authenticated provider calls.
// The crawler does not manage credentials beyond this boundary; the default
// implementation reads the token from configuration or the environment.
type TokenProvider interface {
	// GetToken returns a valid access token, or empty string for
	// providers that need none.
	GetToken(ctx context.Context) (string, error)
}

// StaticTokenProvider returns a fixed token. Useful for tests and for
// tokens sourced once from the environment.
type StaticTokenProvider string

// GetToken returns the fixed token.
func (p StaticTokenProvider) GetToken(context.Context) (string, error) {
	return string(p), nil
}
