package metrics

import "sort"

// DefaultWindowSize is the capacity of the recent-latency ring used for live percentiles.
const DefaultWindowSize = 100

// window is a fixed-capacity ring of the most recent latencies. Not safe for
// concurrent use; the Collector guards it.
type window struct {
	values []float64
	next   int
	full   bool
}

func newWindow(size int) *window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &window{values: make([]float64, size)}
}

func (w *window) push(v float64) {
	w.values[w.next] = v
	w.next++
	if w.next == len(w.values) {
		w.next = 0
		w.full = true
	}
}

func (w *window) len() int {
	if w.full {
		return len(w.values)
	}
	return w.next
}

// sortedCopy returns the window contents sorted ascending.
func (w *window) sortedCopy() []float64 {
	out := make([]float64, w.len())
	copy(out, w.values[:w.len()])
	sort.Float64s(out)
	return out
}
