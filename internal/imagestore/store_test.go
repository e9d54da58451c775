package imagestore

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

// Minimal valid PNG header followed by padding; enough for content sniffing.
func pngBytes() []byte {
	header := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return append(header, bytes.Repeat([]byte{0}, 64)...)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(nil, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestIngestDetectsTypeFromContent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	name, err := s.Ingest(bytes.NewReader(pngBytes()), 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(name, ".png") {
		t.Fatalf("expected .png suffix, got %q", name)
	}
	if _, ok := s.Resolve(name); !ok {
		t.Fatalf("ingested image %q not resolvable", name)
	}
}

func TestIngestRejectsNonImage(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.Ingest(strings.NewReader("definitely not an image"), 1<<20)
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	// The temp file must be gone.
	count, err := s.WorkingCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("working dir has %d leftover files", count)
	}
}

func TestIngestEnforcesLimit(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	payload := append(pngBytes(), bytes.Repeat([]byte{1}, 1024)...)
	_, err := s.Ingest(bytes.NewReader(payload), 64)
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	count, _ := s.WorkingCount()
	if count != 0 {
		t.Fatalf("working dir has %d leftover files", count)
	}
}

func TestIngestUniqueNames(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		name, err := s.Ingest(bytes.NewReader(pngBytes()), 1<<20)
		if err != nil {
			t.Fatal(err)
		}
		if seen[name] {
			t.Fatalf("duplicate generated name %q", name)
		}
		seen[name] = true
	}
}

func TestPromoteAndResolveOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	name, err := s.Ingest(bytes.NewReader(pngBytes()), 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	workingPath, ok := s.Resolve(name)
	if !ok || !strings.Contains(workingPath, workingDirName) {
		t.Fatalf("expected working path, got %q ok=%v", workingPath, ok)
	}

	if err := s.Promote(name); err != nil {
		t.Fatal(err)
	}
	savedPath, ok := s.Resolve(name)
	if !ok || !strings.Contains(savedPath, savedDirName) {
		t.Fatalf("expected saved path, got %q ok=%v", savedPath, ok)
	}

	// Promoting again is a no-op.
	if err := s.Promote(name); err != nil {
		t.Fatalf("re-promote: %v", err)
	}

	if err := s.DeleteSaved(name); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Resolve(name); ok {
		t.Fatal("deleted image still resolvable")
	}
	// Deleting again is still fine.
	if err := s.DeleteSaved(name); err != nil {
		t.Fatalf("re-delete: %v", err)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	name, err := s.Ingest(bytes.NewReader(pngBytes()), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Discard(name); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Resolve(name); ok {
		t.Fatal("discarded image still resolvable")
	}
	if err := s.Discard(name); err != nil {
		t.Fatalf("re-discard: %v", err)
	}
}

func TestFilenameGuards(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, name := range []string{"", "../escape.png", "/abs.png", "a/b.png"} {
		if err := s.Discard(name); !errors.Is(err, ErrInvalidFilename) {
			t.Fatalf("Discard(%q): expected ErrInvalidFilename, got %v", name, err)
		}
		if _, ok := s.Resolve(name); ok {
			t.Fatalf("Resolve(%q) unexpectedly succeeded", name)
		}
	}
}

func TestSweepWorking(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	oldName, err := s.Ingest(bytes.NewReader(pngBytes()), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	newName, err := s.Ingest(bytes.NewReader(pngBytes()), 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	oldPath, _ := s.Resolve(oldName)
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := s.SweepWorking(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := s.Resolve(oldName); ok {
		t.Fatal("old image survived sweep")
	}
	if _, ok := s.Resolve(newName); !ok {
		t.Fatal("fresh image was swept")
	}
}

func TestSweepWorkingSkipsHeldFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	held, err := s.Ingest(bytes.NewReader(pngBytes()), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	orphan, err := s.Ingest(bytes.NewReader(pngBytes()), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{held, orphan} {
		path, _ := s.Resolve(name)
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatal(err)
		}
	}
	s.Hold(held)

	removed, err := s.SweepWorking(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := s.Resolve(held); !ok {
		t.Fatal("held image was swept")
	}
	if _, ok := s.Resolve(orphan); ok {
		t.Fatal("orphan survived sweep")
	}

	// Releasing reopens the file to the sweep.
	s.Release(held)
	removed, err = s.SweepWorking(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed after release = %d, want 1", removed)
	}
}

func TestPromoteReleasesHold(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	name, err := s.Ingest(bytes.NewReader(pngBytes()), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	s.Hold(name)
	if err := s.Promote(name); err != nil {
		t.Fatal(err)
	}
	if s.isHeld(name) {
		t.Fatal("promote left the hold in place")
	}

	s.Hold(name)
	if err := s.Discard(name); err != nil {
		t.Fatal(err)
	}
	if s.isHeld(name) {
		t.Fatal("discard left the hold in place")
	}
}
