package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/iamrony27/downloaderbot/internals/progress"
)

// progressInterval is how often the engine reports while downloading; the
// progress reporter applies its own throttle on top of this.
const progressInterval = 500 * time.Millisecond

// Client drives yt-dlp. All library calls live here.
type Client struct {
	dir     string
	cookies string
	log     *zap.SugaredLogger
}

// New returns a client that downloads into dir. cookiesFile may be empty.
func New(dir, cookiesFile string, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.S().Named("downloader")
	}
	return &Client{dir: dir, cookies: cookiesFile, log: log}
}

// Probe fetches metadata for the URL without downloading anything.
func (c *Client) Probe(ctx context.Context, url string) (*Info, error) {
	dl := ytdlp.New().
		SkipDownload().
		DumpSingleJSON().
		NoPlaylist()
	if c.cookies != "" {
		dl.Cookies(c.cookies)
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("extract metadata: %w", err)
	}

	var info Info
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		return nil, fmt.Errorf("parse metadata JSON: %w", err)
	}
	c.log.Debugw("probed url", "url", url, "title", info.Title, "formats", len(info.Formats))
	return &info, nil
}

// Download runs the request and returns the realized file path.
func (c *Client) Download(ctx context.Context, req Request) (string, error) {
	dl := ytdlp.New().
		Format(req.Format).
		Output(filepath.Join(c.dir, "%(id)s.%(ext)s")).
		NoPlaylist().
		ForceOverwrites()
	if req.MaxBytes > 0 {
		dl.MaxFileSize(strconv.FormatInt(req.MaxBytes, 10))
	}
	if req.AudioOnly {
		dl.ExtractAudio().AudioFormat("mp3").AudioQuality("192K")
	}
	if c.cookies != "" {
		dl.Cookies(c.cookies)
	}
	if req.OnProgress != nil {
		dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			req.OnProgress(toEvent(update))
		})
	}

	result, err := dl.Run(ctx, req.URL)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	if req.OnProgress != nil {
		req.OnProgress(progress.Event{Status: progress.StatusFinished})
	}

	path, err := c.locate(result, req.AudioOnly)
	if err != nil {
		return "", err
	}
	c.log.Infow("download finished", "file", filepath.Base(path))
	return path, nil
}

// locate resolves the file a run produced: the filename the engine reported
// when it still exists, otherwise a probe over the known extensions. Audio
// runs always probe, because extraction replaces the reported file with the
// mp3.
func (c *Client) locate(result *ytdlp.Result, audioOnly bool) (string, error) {
	var id, filename string
	if infos, err := result.GetExtractedInfo(); err == nil {
		id, filename = extractedIdentity(infos)
	}

	if !audioOnly && filename != "" && fileExists(filename) {
		return filename, nil
	}
	if id == "" {
		return "", fmt.Errorf("engine did not report a media id")
	}
	return ResolveFile(c.dir, id, audioOnly)
}

// extractedIdentity pulls the media id and the reported filename (when the
// engine gives one) out of a run's extracted info.
func extractedIdentity(infos []*ytdlp.ExtractedInfo) (id, filename string) {
	if len(infos) == 0 {
		return "", ""
	}
	id = infos[0].ID
	if infos[0].Filename != nil {
		filename = *infos[0].Filename
	}
	return id, filename
}

func toEvent(update ytdlp.ProgressUpdate) progress.Event {
	e := progress.Event{
		Status:     progress.StatusDownloading,
		Downloaded: int64(update.DownloadedBytes),
		Total:      int64(update.TotalBytes),
		ETA:        update.ETA(),
	}
	if elapsed := time.Since(update.Started).Seconds(); elapsed > 0 {
		e.Speed = float64(update.DownloadedBytes) / elapsed
	}
	return e
}
