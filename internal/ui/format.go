package ui

import (
	"fmt"
	"strings"
	"time"
)

// FormatBytes formats a byte count for humans.
func FormatBytes(n int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case n >= GB:
		return fmt.Sprintf("%.1f GB", float64(n)/GB)
	case n >= MB:
		return fmt.Sprintf("%.1f MB", float64(n)/MB)
	case n >= KB:
		return fmt.Sprintf("%.1f KB", float64(n)/KB)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		m, s := int(d.Minutes()), int(d.Seconds())%60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// formatAge renders t relative to now.
func formatAge(t, now time.Time) string {
	diff := now.Sub(t)
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

// truncatePath shortens a slash-separated path to maxLen bytes, keeping
// the final element whenever it fits.
func truncatePath(p string, maxLen int) string {
	if len(p) <= maxLen {
		return p
	}
	if maxLen < 4 {
		return "..."
	}

	i := strings.LastIndex(p, "/")
	base := p[i+1:]
	if i < 0 || len(base)+4 > maxLen {
		return "..." + p[len(p)-maxLen+3:]
	}

	room := maxLen - len(base) - 4
	return "..." + p[i-room:i] + "/" + base
}
