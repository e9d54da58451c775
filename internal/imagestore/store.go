// Package imagestore owns the two image directories of the bot: a working
// directory for uploads that belong to an open editing session, and a saved
// directory for images promoted by a successful save. Filenames are always
// generated ({uuid}.{ext}) with the extension taken from the sniffed
// content, never from anything the uploader supplied.
package imagestore

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	workingDirName = "pictures"
	savedDirName   = "saved_pictures"
	sniffLen       = 512
)

// Store manages temporary and permanent image files under one data root.
type Store struct {
	workingDir string
	savedDir   string
	logger     *slog.Logger

	mu sync.Mutex
	// held names working files owned by an open session. SweepWorking
	// skips them until Promote or Discard settles the file.
	held map[string]struct{}
}

// New creates the store and ensures both directories exist.
func New(log *slog.Logger, dataRoot string) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(dataRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve data root: %w", err)
	}
	s := &Store{
		workingDir: filepath.Join(abs, workingDirName),
		savedDir:   filepath.Join(abs, savedDirName),
		logger:     log.With(slog.String("service", "imagestore")),
		held:       make(map[string]struct{}),
	}
	for _, dir := range []string{s.workingDir, s.savedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create image dir: %w", err)
		}
	}
	return s, nil
}

// Ingest spools the reader into the working directory, sniffs the content
// type and renames the file to {uuid}.{ext}. The temp file is removed on
// any failure. A non-image payload returns ErrNotImage.
func (s *Store) Ingest(r io.Reader, maxBytes int64) (string, error) {
	if r == nil {
		return "", fmt.Errorf("reader is required")
	}
	if maxBytes <= 0 {
		return "", fmt.Errorf("max bytes must be greater than 0")
	}

	tempFile, err := os.CreateTemp(s.workingDir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	keepFile := false
	defer func() {
		_ = tempFile.Close()
		if !keepFile {
			_ = os.Remove(tempPath)
		}
	}()

	limited := &io.LimitedReader{R: r, N: maxBytes + 1}
	written, err := io.Copy(tempFile, limited)
	if err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if written > maxBytes {
		return "", fmt.Errorf("%w: max %d bytes", ErrImageTooLarge, maxBytes)
	}
	if written == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrNotImage)
	}

	ext, err := sniffExtension(tempFile)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	if err := os.Rename(tempPath, filepath.Join(s.workingDir, name)); err != nil {
		return "", fmt.Errorf("rename upload: %w", err)
	}
	keepFile = true
	s.logger.Debug("image ingested", slog.String("filename", name), slog.Int64("bytes", written))
	return name, nil
}

// Resolve returns the on-disk path for a stored image, searching the
// working directory first and the saved directory second.
func (s *Store) Resolve(filename string) (string, bool) {
	if err := checkFilename(filename); err != nil {
		return "", false
	}
	for _, dir := range []string{s.workingDir, s.savedDir} {
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Hold marks a working image as owned by an open session, exempting it
// from SweepWorking. Promote and Discard release the hold.
func (s *Store) Hold(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held[filename] = struct{}{}
}

// Release drops the hold on a working image without touching the file.
func (s *Store) Release(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.held, filename)
}

func (s *Store) isHeld(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.held[filename]
	return ok
}

// Promote moves a working image into the saved directory and releases any
// hold on it. Promoting an image that is already saved is a no-op.
func (s *Store) Promote(filename string) error {
	if err := checkFilename(filename); err != nil {
		return err
	}
	src := filepath.Join(s.workingDir, filename)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			s.Release(filename)
			return nil
		}
		return fmt.Errorf("stat working image: %w", err)
	}
	if err := os.Rename(src, filepath.Join(s.savedDir, filename)); err != nil {
		return fmt.Errorf("promote image: %w", err)
	}
	s.Release(filename)
	return nil
}

// Discard removes a working image and releases any hold on it. Missing
// files are not an error.
func (s *Store) Discard(filename string) error {
	if err := checkFilename(filename); err != nil {
		return err
	}
	s.Release(filename)
	if err := os.Remove(filepath.Join(s.workingDir, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("discard image: %w", err)
	}
	return nil
}

// DeleteSaved removes a promoted image. Missing files are not an error.
func (s *Store) DeleteSaved(filename string) error {
	if err := checkFilename(filename); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.savedDir, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete saved image: %w", err)
	}
	return nil
}

// SweepWorking deletes working-directory files older than maxAge and
// returns how many were removed. Sessions clean up after themselves; the
// sweep catches files orphaned by crashes or kills. Held files are
// skipped regardless of age.
func (s *Store) SweepWorking(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.workingDir)
	if err != nil {
		return 0, fmt.Errorf("read working dir: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || s.isHeld(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.workingDir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("swept orphaned images", slog.Int("removed", removed))
	}
	return removed, nil
}

// WorkingCount returns the number of files currently in the working dir.
func (s *Store) WorkingCount() (int, error) {
	entries, err := os.ReadDir(s.workingDir)
	if err != nil {
		return 0, fmt.Errorf("read working dir: %w", err)
	}
	return len(entries), nil
}

func checkFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	clean := filepath.Clean(filename)
	if clean != filename || filepath.IsAbs(clean) || strings.ContainsRune(clean, filepath.Separator) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return nil
}

// sniffExtension detects the image type from the file's leading bytes and
// maps it to a filename extension. The seek position is left untouched for
// the caller's rename.
func sniffExtension(f *os.File) (string, error) {
	head := make([]byte, sniffLen)
	n, err := f.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read upload head: %w", err)
	}
	contentType := http.DetectContentType(head[:n])
	switch contentType {
	case "image/png":
		return ".png", nil
	case "image/jpeg":
		return ".jpg", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "image/bmp":
		return ".bmp", nil
	default:
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, contentType)
	}
}
