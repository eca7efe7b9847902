package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/burl/internal/config"
)

// AuthProvider supplies authentication tokens and injects them into HTTP requests.
type AuthProvider interface {
	Token(ctx context.Context) (string, error)
	InjectHeader(ctx context.Context, req *http.Request) error
	Close() error
}

type RequestBuilder struct {
	method       string
	target       string
	headers      http.Header
	body         BodySource
	authProvider AuthProvider
}

func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target := strings.TrimSpace(cfg.TargetURL)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	method := strings.TrimSpace(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	var bodySource BodySource = emptyBodySource{}
	if !omitsBody(method) {
		var err error
		bodySource, err = NewBodySource(cfg)
		if err != nil {
			return nil, err
		}
	}

	headers := http.Header{}
	for key, value := range cfg.Headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		headers.Set(canonicalKey, value)
	}

	return &RequestBuilder{
		method:  method,
		target:  target,
		headers: headers,
		body:    bodySource,
	}, nil
}

// NewRequestBuilderWithAuth creates a RequestBuilder whose requests carry the
// provider's Authorization header.
func NewRequestBuilderWithAuth(cfg *config.Config, provider AuthProvider) (*RequestBuilder, error) {
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		return nil, err
	}
	builder.authProvider = provider
	return builder, nil
}

// Method returns the upper-cased request method.
func (b *RequestBuilder) Method() string { return b.method }

// Target returns the request URL.
func (b *RequestBuilder) Target() string { return b.target }

// omitsBody reports whether a configured body is dropped for method.
func omitsBody(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	length, _ := b.body.ContentLength()

	var reader io.ReadCloser
	if length > 0 {
		var err error
		reader, err = b.body.NewReader()
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, b.method, b.target, reader)
	if err != nil {
		if reader != nil {
			_ = reader.Close()
		}
		return nil, err
	}

	req.Header = b.headers.Clone()
	if length > 0 {
		req.ContentLength = length
		req.GetBody = b.body.NewReader
	}

	if b.authProvider != nil {
		if err := b.authProvider.InjectHeader(ctx, req); err != nil {
			return nil, fmt.Errorf("auth provider inject header: %w", err)
		}
	}

	return req, nil
}

// ClientOptions configures the shared benchmark client.
type ClientOptions struct {
	Timeout         time.Duration
	Insecure        bool
	HTTPVersion     config.HTTPVersion
	MaxConnsPerHost int
}

// ClientOptionsFromConfig derives client settings from a validated config.
func ClientOptionsFromConfig(cfg *config.Config) ClientOptions {
	return ClientOptions{
		Timeout:         cfg.Timeout,
		Insecure:        cfg.Insecure,
		HTTPVersion:     cfg.HTTPVersion,
		MaxConnsPerHost: cfg.Connections,
	}
}

// NewClient builds a client whose pool holds one connection per worker. The
// client timeout covers the whole exchange including reading the body.
func NewClient(opts ClientOptions) *http.Client {
	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	idlePerHost := 32
	if opts.MaxConnsPerHost > idlePerHost {
		idlePerHost = opts.MaxConnsPerHost
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          max(256, idlePerHost),
		MaxIdleConnsPerHost:   idlePerHost,
		MaxConnsPerHost:       max(opts.MaxConnsPerHost, 0),
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure
	}

	switch opts.HTTPVersion {
	case config.HTTPVersion1:
		// A non-nil empty map disables the HTTP/2 upgrade.
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	case config.HTTPVersion2:
		protocols := new(http.Protocols)
		protocols.SetHTTP2(true)
		protocols.SetUnencryptedHTTP2(true)
		transport.Protocols = protocols
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
