package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationTerm    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(ms|s|m|h|d)?`)
	durationPattern = regexp.MustCompile(`^(?:\d+(?:\.\d+)?\s*(?:ms|s|m|h|d)?\s*)+$`)
)

// ParseDuration parses human duration strings. A bare integer is seconds;
// otherwise the value is a sum of <number><unit> terms with units ms, s, m,
// h and d, where a missing unit means seconds. "5m30s" and "1.5h" are valid.
func ParseDuration(input string) (time.Duration, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return 0, fmt.Errorf("invalid duration format: %q", input)
	}

	if n, err := strconv.ParseInt(normalized, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}

	if !durationPattern.MatchString(normalized) {
		return 0, fmt.Errorf("invalid duration format: %q (use formats like 10s, 1m, 5m30s)", input)
	}

	var total float64
	for _, match := range durationTerm.FindAllStringSubmatch(normalized, -1) {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration value %q: %w", match[1], err)
		}
		switch match[2] {
		case "ms":
			total += value * float64(time.Millisecond)
		case "", "s":
			total += value * float64(time.Second)
		case "m":
			total += value * float64(time.Minute)
		case "h":
			total += value * float64(time.Hour)
		case "d":
			total += value * 24 * float64(time.Hour)
		}
	}
	// Round to whole milliseconds.
	return time.Duration(total).Round(time.Millisecond), nil
}
