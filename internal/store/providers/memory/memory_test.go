package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/embedforge/embedforge/internal/embed"
	"github.com/embedforge/embedforge/internal/store"
)

func TestCreateUniqueness(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	rec := store.Record{ID: 1, Name: "welcome", Draft: embed.DefaultDraft()}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, store.Record{ID: 1, Name: "other"}); !errors.Is(err, store.ErrIDExists) {
		t.Fatalf("expected ErrIDExists, got %v", err)
	}
	if err := s.Create(ctx, store.Record{ID: 2, Name: "welcome"}); !errors.Is(err, store.ErrNameExists) {
		t.Fatalf("expected ErrNameExists, got %v", err)
	}
}

func TestLookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	if _, err := s.GetByID(ctx, 7); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetByName(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Create(ctx, store.Record{ID: 7, Name: "rules", Draft: embed.Draft{Title: "Rules"}}); err != nil {
		t.Fatal(err)
	}
	byID, err := s.GetByID(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	byName, err := s.GetByName(ctx, "rules")
	if err != nil {
		t.Fatal(err)
	}
	if byID.Draft.Title != "Rules" || byName.ID != 7 {
		t.Fatalf("lookup mismatch: %+v / %+v", byID, byName)
	}
}

func TestRename(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	if err := s.Create(ctx, store.Record{ID: 1, Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, store.Record{ID: 2, Name: "b"}); err != nil {
		t.Fatal(err)
	}

	// Collisions with other records are rejected.
	if err := s.Rename(ctx, 1, store.Record{ID: 2, Name: "c"}); !errors.Is(err, store.ErrIDExists) {
		t.Fatalf("expected ErrIDExists, got %v", err)
	}
	if err := s.Rename(ctx, 1, store.Record{ID: 3, Name: "b"}); !errors.Is(err, store.ErrNameExists) {
		t.Fatalf("expected ErrNameExists, got %v", err)
	}

	// Keeping your own key is allowed.
	if err := s.Rename(ctx, 1, store.Record{ID: 1, Name: "a", Draft: embed.Draft{Title: "kept"}}); err != nil {
		t.Fatal(err)
	}

	if err := s.Rename(ctx, 1, store.Record{ID: 3, Name: "c"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetByID(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("old id still present: %v", err)
	}
	rec, err := s.GetByName(ctx, "c")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != 3 {
		t.Fatalf("renamed record id = %d", rec.ID)
	}
}

func TestDeleteAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	for i, name := range []string{"x", "y", "z"} {
		if err := s.Create(ctx, store.Record{ID: int64(i + 1), Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Delete(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, 2); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 3 {
		t.Fatalf("unexpected list: %+v", list)
	}

	// The freed name is reusable.
	if err := s.Create(ctx, store.Record{ID: 2, Name: "y"}); err != nil {
		t.Fatal(err)
	}
}
