package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// knownExts are the container extensions the engine realistically produces;
// the realized extension can differ from the requested template.
var knownExts = []string{".mp4", ".mkv", ".webm", ".mp3"}

// ResolveFile locates the downloaded file for a media ID. Audio requests
// check the mp3 path first; otherwise every known extension is probed in
// order.
func ResolveFile(dir, mediaID string, audioOnly bool) (string, error) {
	if audioOnly {
		path := filepath.Join(dir, mediaID+".mp3")
		if fileExists(path) {
			return path, nil
		}
	}
	for _, ext := range knownExts {
		path := filepath.Join(dir, mediaID+ext)
		if fileExists(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("file not found after download (id %s)", mediaID)
}

// RemoveArtifacts deletes the realized file and every sibling fragment
// sharing its "<id>." name prefix (.part files, intermediate format
// remnants). Engine-assigned ids can contain glob metacharacters, so names
// are matched literally. A file that is already gone is not an error.
func RemoveArtifacts(path string) error {
	var result error
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		result = multierror.Append(result, fmt.Errorf("remove %s: %w", path, err))
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	prefix := strings.TrimSuffix(base, filepath.Ext(base)) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return multierror.Append(result, fmt.Errorf("scan %s: %w", dir, err))
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == base || !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, fmt.Errorf("remove %s: %w", name, err))
		}
	}
	return result
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
