// Package diagnose measures where the time of a single request goes.
package diagnose

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// RequestBuilder produces the request to diagnose.
type RequestBuilder interface {
	Build(ctx context.Context) (*http.Request, error)
}

// Timing is the phase breakdown of one request. Phases that did not happen,
// such as DNS on a reused connection, are zero.
type Timing struct {
	DNS      time.Duration
	Connect  time.Duration
	TLS      time.Duration
	TTFB     time.Duration
	Transfer time.Duration
	Total    time.Duration
	Reused   bool
}

// Details describes the connection used by the cold request.
type Details struct {
	RemoteAddr    string
	Protocol      string
	TLSVersion    string
	Server        string
	ContentType   string
	ContentLength int64
}

// Result holds a cold and a warm measurement against the same target.
type Result struct {
	Method       string
	URL          string
	Cold         Timing
	Warm         Timing
	Details      Details
	StatusCode   int
	ResponseSize int64
}

// Run issues one request on a fresh connection and one on the kept-alive
// connection, tracing each phase.
func Run(ctx context.Context, client *http.Client, builder RequestBuilder) (Result, error) {
	if client == nil || builder == nil {
		return Result{}, errors.New("diagnose: client and builder are required")
	}
	client.CloseIdleConnections()

	cold, err := measure(ctx, client, builder)
	if err != nil {
		return Result{}, fmt.Errorf("cold request: %w", err)
	}
	warm, err := measure(ctx, client, builder)
	if err != nil {
		return Result{}, fmt.Errorf("warm request: %w", err)
	}

	return Result{
		Method:       cold.method,
		URL:          cold.url,
		Cold:         cold.timing,
		Warm:         warm.timing,
		Details:      cold.details,
		StatusCode:   cold.status,
		ResponseSize: cold.size,
	}, nil
}

type measurement struct {
	method  string
	url     string
	timing  Timing
	details Details
	status  int
	size    int64
}

func measure(ctx context.Context, client *http.Client, builder RequestBuilder) (measurement, error) {
	req, err := builder.Build(ctx)
	if err != nil {
		return measurement{}, err
	}

	var (
		m                             measurement
		dnsStart, connStart, tlsStart time.Time
		wroteRequest, firstByte       time.Time
	)
	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone: func(httptrace.DNSDoneInfo) {
			if !dnsStart.IsZero() {
				m.timing.DNS = time.Since(dnsStart)
			}
		},
		ConnectStart: func(string, string) { connStart = time.Now() },
		ConnectDone: func(_, _ string, err error) {
			if err == nil && !connStart.IsZero() {
				m.timing.Connect = time.Since(connStart)
			}
		},
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err == nil && !tlsStart.IsZero() {
				m.timing.TLS = time.Since(tlsStart)
				m.details.TLSVersion = tls.VersionName(state.Version)
			}
		},
		GotConn: func(info httptrace.GotConnInfo) {
			m.timing.Reused = info.Reused
			if info.Conn != nil {
				m.details.RemoteAddr = info.Conn.RemoteAddr().String()
			}
		},
		WroteRequest:         func(httptrace.WroteRequestInfo) { wroteRequest = time.Now() },
		GotFirstResponseByte: func() { firstByte = time.Now() },
	}

	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return measurement{}, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	end := time.Now()
	if err != nil {
		return measurement{}, fmt.Errorf("read body: %w", err)
	}

	if firstByte.IsZero() {
		firstByte = end
	}
	if !wroteRequest.IsZero() {
		m.timing.TTFB = firstByte.Sub(wroteRequest)
	} else {
		m.timing.TTFB = firstByte.Sub(start)
	}
	m.timing.Transfer = end.Sub(firstByte)
	m.timing.Total = end.Sub(start)

	m.method = req.Method
	m.url = req.URL.String()
	m.status = resp.StatusCode
	m.size = n
	m.details.Protocol = resp.Proto
	m.details.Server = resp.Header.Get("Server")
	m.details.ContentType = resp.Header.Get("Content-Type")
	m.details.ContentLength = n
	return m, nil
}
