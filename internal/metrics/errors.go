package metrics

import (
	"strings"
	"unicode"
)

// ErrorKind classifies a transport-level request failure.
type ErrorKind string

const (
	ErrorTimeout           ErrorKind = "timeout"
	ErrorConnectionRefused ErrorKind = "connection_refused"
	ErrorConnectionReset   ErrorKind = "connection_reset"
	ErrorDNS               ErrorKind = "dns_error"
	ErrorTLS               ErrorKind = "tls_error"
	ErrorSocketHangup      ErrorKind = "socket_hangup"
	ErrorUnknown           ErrorKind = "unknown_error"
)

// ErrorKinds lists the closed taxonomy in display order.
var ErrorKinds = []ErrorKind{
	ErrorTimeout,
	ErrorConnectionRefused,
	ErrorConnectionReset,
	ErrorDNS,
	ErrorTLS,
	ErrorSocketHangup,
	ErrorUnknown,
}

var friendlyAliases = map[ErrorKind]string{
	ErrorDNS:     "DNS error",
	ErrorTLS:     "TLS error",
	ErrorUnknown: "Unknown error",
}

// Valid reports whether k belongs to the taxonomy.
func (k ErrorKind) Valid() bool {
	for _, known := range ErrorKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Label returns a human-friendly label, e.g. "Connection refused".
func (k ErrorKind) Label() string {
	if alias, ok := friendlyAliases[k]; ok {
		return alias
	}
	cleaned := strings.TrimSpace(strings.TrimSuffix(string(k), "_error"))
	if cleaned == "" {
		return "Unknown error"
	}
	words := strings.Split(cleaned, "_")
	return capitalize(strings.Join(words, " "))
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
