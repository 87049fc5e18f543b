// Package downloader wraps the yt-dlp extraction engine: a metadata probe
// for building the quality choices and a download call that reports progress
// and returns the realized local file.
package downloader

import (
	"fmt"
	"sort"
)

type Format struct {
	Height int    `json:"height"`
	Vcodec string `json:"vcodec"`
}

// Info is the slice of the extractor's metadata the bot cares about.
type Info struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Uploader string   `json:"uploader"`
	Duration float64  `json:"duration"`
	Formats  []Format `json:"formats"`
}

// Heights returns the distinct video heights on offer, highest first.
// Audio-only formats and formats without a height are skipped.
func (i *Info) Heights() []int {
	seen := make(map[int]bool)
	for _, f := range i.Formats {
		if f.Vcodec == "none" || f.Height <= 0 {
			continue
		}
		seen[f.Height] = true
	}
	heights := make([]int, 0, len(seen))
	for h := range seen {
		heights = append(heights, h)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))
	return heights
}

// DurationString renders the duration as m:ss, or h:mm:ss past an hour.
func (i *Info) DurationString() string {
	total := int(i.Duration)
	if total <= 0 {
		return "0:00"
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
