package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
)

// StaticTokenProvider implements a provider that returns a pre-configured
// bearer token.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a new static token provider with the given token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{
		token: token,
	}
}

// Token returns the static token immediately without any network calls.
func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return p.token, nil
}

// InjectHeader injects the static token into the Authorization header.
func (p *StaticTokenProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.token))
	return nil
}

// Close is a no-op for static token providers.
func (p *StaticTokenProvider) Close() error {
	return nil
}

// BasicProvider injects HTTP Basic credentials.
type BasicProvider struct {
	username string
	password string
}

// NewBasicProvider creates a provider for HTTP Basic authentication.
func NewBasicProvider(username, password string) *BasicProvider {
	return &BasicProvider{username: username, password: password}
}

// Token returns base64("username:password").
func (p *BasicProvider) Token(ctx context.Context) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(p.username + ":" + p.password)), nil
}

// InjectHeader sets a Basic Authorization header.
func (p *BasicProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	token, _ := p.Token(ctx)
	req.Header.Set("Authorization", "Basic "+token)
	return nil
}

// Close is a no-op for basic providers.
func (p *BasicProvider) Close() error {
	return nil
}
