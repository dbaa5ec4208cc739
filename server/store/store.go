// Package store manages the upload staging area and the artifact area on
// the local filesystem. Both are ephemeral: created under the OS temp dir
// and removed when the process shuts down.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrArtifactNotFound = errors.New("artifact not found")

type Store struct {
	uploadDir   string
	artifactDir string
	logger      *zap.Logger
}

func New(logger *zap.Logger) (*Store, error) {
	uploadDir, err := os.MkdirTemp("", "docconv_uploads_")
	if err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	artifactDir, err := os.MkdirTemp("", "docconv_artifacts_")
	if err != nil {
		os.RemoveAll(uploadDir)
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	logger.Info("Storage directories created",
		zap.String("upload_dir", uploadDir),
		zap.String("artifact_dir", artifactDir),
	)

	return &Store{
		uploadDir:   uploadDir,
		artifactDir: artifactDir,
		logger:      logger,
	}, nil
}

// SaveUpload stages uploaded bytes under a task-scoped name so concurrent
// uploads with identical original names never collide.
func (s *Store) SaveUpload(taskID, filename string, data []byte) (string, error) {
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", taskID, filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

// RemoveUpload deletes a staged upload once the conversion no longer needs it.
func (s *Store) RemoveUpload(path string) {
	if err := os.Remove(path); err != nil {
		s.logger.Warn("Failed to remove staged upload",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

func (s *Store) artifactPath(taskID, filename string) (path, storedName string) {
	storedName = fmt.Sprintf("%s_%s", taskID, filename)
	return filepath.Join(s.artifactDir, storedName), storedName
}

// Put writes a completed artifact under a task-scoped name and returns
// the stored name used in download locators.
func (s *Store) Put(taskID, filename string, data []byte) (string, error) {
	path, storedName := s.artifactPath(taskID, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	return storedName, nil
}

// Resolve scans the artifact area for an entry whose stored name begins
// with prefix and returns its name and bytes. A linear scan is fine: the
// area is bounded by the lifetime of one process run.
func (s *Store) Resolve(prefix string) (string, []byte, error) {
	if prefix == "" {
		return "", nil, ErrArtifactNotFound
	}

	entries, err := os.ReadDir(s.artifactDir)
	if err != nil {
		return "", nil, fmt.Errorf("scan artifact dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.artifactDir, entry.Name()))
		if err != nil {
			return "", nil, fmt.Errorf("read artifact: %w", err)
		}
		return entry.Name(), data, nil
	}

	return "", nil, ErrArtifactNotFound
}

// Sweep removes artifacts older than maxAge. Bounds artifact growth for
// long-running processes; the area is otherwise append-only.
func (s *Store) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(s.artifactDir)
	if err != nil {
		s.logger.Warn("Artifact sweep failed", zap.Error(err))
		return 0
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.artifactDir, entry.Name())); err != nil {
			s.logger.Warn("Failed to remove expired artifact",
				zap.String("name", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Swept expired artifacts", zap.Int("removed", removed))
	}
	return removed
}

// Close removes both storage areas.
func (s *Store) Close() {
	s.logger.Info("Cleaning up storage directories")
	os.RemoveAll(s.uploadDir)
	os.RemoveAll(s.artifactDir)
}
