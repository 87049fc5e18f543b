package downloader

import (
	"fmt"

	"github.com/iamrony27/downloaderbot/internals/progress"
)

// Request describes one download. It is built per quality choice and not
// modified after being handed to the client.
type Request struct {
	URL string
	// Format is the yt-dlp format selector.
	Format string
	// AudioOnly asks for best-audio extraction to mp3 instead of a video
	// file.
	AudioOnly bool
	// MaxBytes is passed to the engine as its size ceiling. The caller
	// still verifies the realized file against the same limit.
	MaxBytes int64
	// OnProgress, when set, receives progress events. It is called from
	// the engine's callback goroutine and must not block.
	OnProgress func(progress.Event)
}

// VideoFormat builds a selector capped at the given height, preferring mp4
// for player compatibility and falling back to any container. A height of
// zero or less selects the best available video.
func VideoFormat(height int) string {
	if height <= 0 {
		return "best[ext=mp4]/best"
	}
	return fmt.Sprintf("best[height<=%d][ext=mp4]/best[height<=%d]", height, height)
}

// AudioFormat selects the best audio stream; the client pairs it with mp3
// extraction.
func AudioFormat() string {
	return "bestaudio/best"
}
