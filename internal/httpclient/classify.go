package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/torosent/burl/internal/metrics"
)

// Classify maps a transport error onto the closed failure taxonomy. Typed
// errors are checked first; unfamiliar errors fall back to matching their
// message, which is best effort.
func Classify(err error) metrics.ErrorKind {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return metrics.ErrorTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return metrics.ErrorConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return metrics.ErrorConnectionReset
	case errors.As(err, &dnsErr):
		return metrics.ErrorDNS
	case isTLS(err):
		return metrics.ErrorTLS
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return metrics.ErrorSocketHangup
	}

	return classifyMessage(err.Error())
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTLS(err error) bool {
	var (
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}

var messagePatterns = []struct {
	kind     metrics.ErrorKind
	patterns []string
}{
	{metrics.ErrorTimeout, []string{"timeout", "deadline exceeded"}},
	{metrics.ErrorConnectionRefused, []string{"econnrefused", "connection refused"}},
	{metrics.ErrorConnectionReset, []string{"econnreset", "connection reset"}},
	{metrics.ErrorDNS, []string{"enotfound", "getaddrinfo", "no such host"}},
	{metrics.ErrorTLS, []string{"certificate", "x509", "ssl", "tls"}},
	{metrics.ErrorSocketHangup, []string{"socket hang up", "eof", "broken pipe", "server closed"}},
}

func classifyMessage(msg string) metrics.ErrorKind {
	msg = strings.ToLower(msg)
	for _, entry := range messagePatterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(msg, pattern) {
				return entry.kind
			}
		}
	}
	return metrics.ErrorUnknown
}
