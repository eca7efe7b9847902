// Package auth builds Authorization headers from "basic:user:pass" and
// "bearer:token" credential strings.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Provider defines the interface for authentication providers that can
// obtain tokens and inject them into HTTP requests.
type Provider interface {
	// Token returns the credential as it appears after the auth scheme.
	Token(ctx context.Context) (string, error)

	// InjectHeader sets the Authorization header of the provided HTTP request.
	InjectHeader(ctx context.Context, req *http.Request) error

	// Close releases any resources held by the provider.
	Close() error
}

var errMissingSeparator = errors.New(`invalid auth format: use "basic:user:pass" or "bearer:token"`)

// Parse turns a credential string into a Provider. The scheme is matched
// case-insensitively; everything after the first colon belongs to the
// credential, so passwords and tokens may contain colons.
func Parse(s string) (Provider, error) {
	scheme, rest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, errMissingSeparator
	}

	switch strings.ToLower(scheme) {
	case "basic":
		username, password, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, errors.New(`basic auth requires "basic:username:password" format`)
		}
		return NewBasicProvider(username, password), nil
	case "bearer":
		return NewStaticTokenProvider(rest), nil
	default:
		return nil, fmt.Errorf("unknown auth type %q: use \"basic\" or \"bearer\"", strings.ToLower(scheme))
	}
}
