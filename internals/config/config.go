// Package config holds the runtime settings of the bot process.
package config

import (
	"errors"
	"fmt"
	"os"
)

const (
	DefaultDownloadDir = "downloads"
	DefaultWorkers     = 4

	// DefaultMaxFileSize is the largest file the bot will hand to the
	// messaging API as an attachment.
	DefaultMaxFileSize int64 = 50 << 20
)

type Config struct {
	// Token authenticates the bot against the messaging API.
	Token string
	// DownloadDir is where downloaded media lands before upload.
	DownloadDir string
	// CookiesFile, when set, is passed through to the extraction engine
	// for sites that require authentication.
	CookiesFile string
	// Debug enables verbose API logging.
	Debug bool
	// Workers bounds how many blocking operations run at once.
	Workers int
	// MaxFileSize is the attachment size ceiling in bytes.
	MaxFileSize int64
}

// Default returns a Config with every optional field at its default.
// The token must still be filled in by the caller.
func Default() Config {
	return Config{
		DownloadDir: DefaultDownloadDir,
		Workers:     DefaultWorkers,
		MaxFileSize: DefaultMaxFileSize,
	}
}

func (c Config) Validate() error {
	if c.Token == "" {
		return errors.New("bot token is not set")
	}
	if c.DownloadDir == "" {
		return errors.New("download directory is not set")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.Workers)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive, got %d", c.MaxFileSize)
	}
	return nil
}

// EnsureDownloadDir creates the download directory if it does not exist.
func (c Config) EnsureDownloadDir() error {
	if err := os.MkdirAll(c.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("create download dir %q: %w", c.DownloadDir, err)
	}
	return nil
}
