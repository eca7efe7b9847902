package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/torosent/burl/internal/metrics"
)

// ProgressReporter rewrites a single status line on each update. Its Update
// method has the runner.ProgressFunc signature.
type ProgressReporter struct {
	mu      sync.Mutex
	writer  io.Writer
	lastLen int
	done    bool
}

// NewProgressReporter creates a progress reporter writing to writer.
func NewProgressReporter(writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{writer: writer}
}

// Update redraws the progress line. Calls after Finish are ignored.
func (p *ProgressReporter) Update(snap metrics.Snapshot, progress float64) {
	line := ProgressLine(snap, progress)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	width := utf8.RuneCountInString(line)
	pad := ""
	if width < p.lastLen {
		pad = strings.Repeat(" ", p.lastLen-width)
	}
	p.lastLen = width
	fmt.Fprint(p.writer, "\r"+line+pad)
}

// Finish clears the progress line so the report starts on a clean line.
func (p *ProgressReporter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	if p.lastLen > 0 {
		fmt.Fprint(p.writer, "\r"+strings.Repeat(" ", p.lastLen)+"\r")
	}
}

// ProgressLine formats one progress update.
func ProgressLine(snap metrics.Snapshot, progress float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %3.0f%%  %s", progressBar(progress), progress*100, FormatDuration(snap.ElapsedMs))
	fmt.Fprintf(&b, "  RPS: %.1f", snap.CurrentRPS)
	fmt.Fprintf(&b, "  P50: %s", FormatLatency(snap.P50))
	fmt.Fprintf(&b, "  P99: %s", FormatLatency(snap.P99))
	fmt.Fprintf(&b, "  OK: %d", snap.Successes)
	if snap.Failures > 0 {
		fmt.Fprintf(&b, "  ERR: %d", snap.Failures)
	}
	return b.String()
}
