package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// SweepStale removes job directories in workDir that are older than maxAge.
// They are left behind only when the process died in the middle of a job.
func SweepStale(workDir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read work dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), JobDirPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(workDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Error("failed to remove stale job directory", "dir", path, "error", err)
			continue
		}
		log.Info("removed stale job directory", "dir", path, "age", time.Since(info.ModTime()).Round(time.Second))
		removed++
	}
	return removed, nil
}
