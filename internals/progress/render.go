package progress

import (
	"fmt"
	"strings"
	"time"
)

// barWidth is the number of block cells in the rendered progress bar.
const barWidth = 15

const (
	finishedText    = "✅ Download complete! Processing..."
	placeholderText = "⏳ Processing..."
)

// Render turns an event into the status message text. When the total size
// is unknown it falls back to a placeholder rather than guessing.
func Render(e Event) string {
	if e.Status == StatusFinished {
		return finishedText
	}
	if e.Total <= 0 {
		return placeholderText
	}

	frac := float64(e.Downloaded) / float64(e.Total)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	filled := int(frac * barWidth)
	bar := strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled)

	return fmt.Sprintf("📥 Downloading...\n[%s] %.1f%%\n🚀 %s  ⏱ %s",
		bar, frac*100, formatSpeed(e.Speed), formatETA(e.ETA))
}

func formatSpeed(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 {
		return "—"
	}
	return fmt.Sprintf("%.1fMB/s", bytesPerSecond/1024/1024)
}

func formatETA(d time.Duration) string {
	if d <= 0 {
		return "—"
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
