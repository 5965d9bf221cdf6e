// Package staging reclaims per-task scratch directories left behind by
// interrupted conversions. Directories under the staging root are named by
// task ID; anything not owned by an in-flight task is fair game.
package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blogcast/internal/logging"
)

// CleanupResult contains the outcome of a staging sweep.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanOrphaned removes staging directories whose names are not in the
// active task ID set. Failures are collected, not fatal.
func CleanOrphaned(stagingDir string, activeTaskIDs map[string]struct{}, logger *slog.Logger) CleanupResult {
	if logger == nil {
		logger = logging.NewNop()
	}
	result := CleanupResult{}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, active := activeTaskIDs[entry.Name()]; active {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logger.Warn("failed to remove orphaned staging directory",
				logging.String("path", dirPath),
				logging.Error(err),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed orphaned staging directory", logging.String("path", dirPath))
	}

	return result
}

// CleanStale removes staging directories older than maxAge regardless of
// ownership. Used by periodic maintenance.
func CleanStale(stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanupResult {
	if logger == nil {
		logger = logging.NewNop()
	}
	result := CleanupResult{}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logger.Warn("failed to remove stale staging directory",
				logging.String("path", dirPath),
				logging.Error(err),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed stale staging directory",
			logging.String("path", dirPath),
			logging.Duration("age", time.Since(info.ModTime())),
		)
	}

	return result
}
