package output

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatLatency renders a millisecond value with a unit suited to its size.
func FormatLatency(ms float64) string {
	switch {
	case ms < 0.001:
		return fmt.Sprintf("%.2fns", ms*1_000_000)
	case ms < 1:
		return fmt.Sprintf("%.2fµs", ms*1000)
	case ms < 10:
		return fmt.Sprintf("%.3fms", ms)
	case ms < 100:
		return fmt.Sprintf("%.2fms", ms)
	case ms < 1000:
		return fmt.Sprintf("%.1fms", ms)
	default:
		return fmt.Sprintf("%.2fs", ms/1000)
	}
}

// FormatDuration renders an elapsed time given in milliseconds.
func FormatDuration(ms float64) string {
	switch {
	case ms < 1:
		return fmt.Sprintf("%.2fµs", ms*1000)
	case ms < 1000:
		return fmt.Sprintf("%.2fms", ms)
	case ms < 60_000:
		return fmt.Sprintf("%.2fs", ms/1000)
	case ms < 3_600_000:
		minutes := math.Floor(ms / 60_000)
		return fmt.Sprintf("%dm %.1fs", int(minutes), math.Mod(ms, 60_000)/1000)
	default:
		hours := math.Floor(ms / 3_600_000)
		minutes := math.Floor(math.Mod(ms, 3_600_000) / 60_000)
		return fmt.Sprintf("%dh %dm", int(hours), int(minutes))
	}
}

// FormatBytes renders a byte count in binary units, e.g. "1.5 KiB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

// FormatThroughput renders a bytes-per-second rate.
func FormatThroughput(bytesPerSecond float64) string {
	return FormatBytes(int64(math.Round(bytesPerSecond))) + "/s"
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

const progressBarWidth = 30

func progressBar(ratio float64) string {
	ratio = math.Max(0, math.Min(1, ratio))
	filled := int(math.Round(ratio * progressBarWidth))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled) + "]"
}
