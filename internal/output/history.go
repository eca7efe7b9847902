package output

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/torosent/burl/internal/metrics"
)

// HistoryEntry is one line of the run history file.
type HistoryEntry struct {
	RunID             string           `json:"run_id"`
	StartedAt         time.Time        `json:"started_at"`
	URL               string           `json:"url"`
	Method            string           `json:"method"`
	Connections       int              `json:"connections"`
	DurationMs        float64          `json:"duration_ms"`
	TotalRequests     int64            `json:"total_requests"`
	FailedRequests    int64            `json:"failed_requests"`
	RequestsPerSecond float64          `json:"requests_per_second"`
	LatencyP50        float64          `json:"latency_p50_ms"`
	LatencyP99        float64          `json:"latency_p99_ms"`
	StatusCodes       map[int]int64    `json:"status_codes,omitempty"`
	Errors            map[string]int64 `json:"errors,omitempty"`
}

// NewHistoryEntry condenses a result into a history line.
func NewHistoryEntry(r metrics.Result) HistoryEntry {
	entry := HistoryEntry{
		RunID:             r.RunID,
		StartedAt:         r.StartedAt,
		URL:               r.URL,
		Method:            r.Method,
		Connections:       r.Connections,
		DurationMs:        r.DurationMs,
		TotalRequests:     r.TotalRequests,
		FailedRequests:    r.FailedRequests,
		RequestsPerSecond: r.RequestsPerSecond,
		LatencyP50:        r.Latency.P50,
		LatencyP99:        r.Latency.P99,
		StatusCodes:       r.StatusCodes,
	}
	if len(r.Errors) > 0 {
		entry.Errors = make(map[string]int64, len(r.Errors))
		for kind, count := range r.Errors {
			entry.Errors[string(kind)] = count
		}
	}
	return entry
}

// AppendHistory appends one JSON line for result to path. Concurrent burl
// processes serialize on a sibling ".lock" file.
func AppendHistory(path string, result metrics.Result) (err error) {
	if path == "" {
		return errors.New("history file path is empty")
	}

	line, err := json.Marshal(NewHistoryEntry(result))
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock history file: %w", err)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("unlock history file: %w", unlockErr)
		}
	}()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return f.Sync()
}

// ReadHistory loads every entry from a history file, oldest first.
func ReadHistory(path string) ([]HistoryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []HistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry HistoryEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("history line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}
