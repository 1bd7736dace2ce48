package report

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// BarWidth is the width of a full bar in the text charts.
const BarWidth = 30

const mebibyte = 1024 * 1024

// FormatTime renders seconds with a unit suited to its magnitude.
func FormatTime(seconds float64) string {
	switch {
	case seconds <= 0:
		return "N/A"
	case seconds < 0.001:
		return fmt.Sprintf("%.1fus", seconds*1_000_000)
	case seconds < 1:
		return fmt.Sprintf("%.2fms", seconds*1000)
	default:
		return fmt.Sprintf("%.3fs", seconds)
	}
}

// FormatSize renders a byte count in binary units.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "N/A"
	}
	size := float64(bytes)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f%s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1fTB", size)
}

func FormatMemory(kb int64) string {
	if kb <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%dKB", kb)
}

// Throughput is the file size in MiB divided by the mean time, or 0 when
// either is not positive.
func Throughput(sizeBytes int64, meanS float64) float64 {
	if sizeBytes <= 0 || meanS <= 0 {
		return 0
	}
	return float64(sizeBytes) / mebibyte / meanS
}

func FormatThroughput(mbs float64) string {
	if mbs <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f MB/s", mbs)
}

// Bar scales value against slowest into at most width marks, at least one
// for any positive value.
func Bar(value, slowest float64, width int) string {
	if slowest <= 0 || value <= 0 {
		return ""
	}
	n := int(value / slowest * float64(width))
	n = min(max(n, 1), width)
	return strings.Repeat("#", n)
}

// cell makes text safe for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
