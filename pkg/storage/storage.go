// Package storage keeps uploaded and processed documents on disk under
// per-request identifiers and expires them after a retention window.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is how long artifacts are kept.
const DefaultRetention = time.Hour

// ErrInvalidID is returned for identifiers that NewID could not have produced.
var ErrInvalidID = errors.New("invalid file id")

// Store lays artifacts out as <root>/uploads/<id>_input.pdf and
// <root>/outputs/<id>_searchable.pdf.
type Store struct {
	UploadDir string
	OutputDir string
	Retention time.Duration
	Logger    *slog.Logger

	now func() time.Time
}

// New creates the upload and output directories under root.
func New(root string, retention time.Duration, logger *slog.Logger) (*Store, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		UploadDir: filepath.Join(root, "uploads"),
		OutputDir: filepath.Join(root, "outputs"),
		Retention: retention,
		Logger:    logger,
		now:       time.Now,
	}
	for _, dir := range []string{s.UploadDir, s.OutputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return s, nil
}

// NewID returns a fresh request identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is a well-formed identifier, which also keeps
// it from escaping the storage directories.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

func (s *Store) InputPath(id string) string {
	return filepath.Join(s.UploadDir, id+"_input.pdf")
}

func (s *Store) OutputPath(id string) string {
	return filepath.Join(s.OutputDir, id+"_searchable.pdf")
}

// SaveInput writes the uploaded document for id.
func (s *Store) SaveInput(id string, r io.Reader) (int64, error) {
	if !ValidID(id) {
		return 0, ErrInvalidID
	}
	f, err := os.OpenFile(s.InputPath(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create input file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return 0, fmt.Errorf("write input file: %w", err)
	}
	return n, nil
}

// RemoveInput deletes the input of id. A missing file is not an error.
func (s *Store) RemoveInput(id string) error {
	return removeIfExists(s.InputPath(id))
}

// RemoveOutput deletes the output of id and reports whether it existed.
func (s *Store) RemoveOutput(id string) (bool, error) {
	if !ValidID(id) {
		return false, ErrInvalidID
	}
	err := os.Remove(s.OutputPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// OutputExists reports whether a processed document for id is present.
func (s *Store) OutputExists(id string) bool {
	if !ValidID(id) {
		return false
	}
	info, err := os.Stat(s.OutputPath(id))
	return err == nil && info.Mode().IsRegular()
}

// Cleanup removes artifacts older than the retention window and returns
// how many it removed. Files that vanish concurrently are ignored; other
// failures are logged.
func (s *Store) Cleanup() int {
	cutoff := s.now().Add(-s.Retention)
	removed := 0
	for _, dir := range []string{s.UploadDir, s.OutputDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			s.Logger.Error("cannot list storage directory", "dir", dir, "error", err)
			continue
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			info, err := e.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					s.Logger.Error("error cleaning up file", "path", path, "error", err)
				}
				continue
			}
			removed++
			s.Logger.Info("cleaned up old file", "file", e.Name())
		}
	}
	return removed
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
