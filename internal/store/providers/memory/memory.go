// Package memory implements store.EmbedStore with in-process maps. It
// backs tests and the no-database development mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/embedforge/embedforge/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	byID   map[int64]store.Record
	byName map[string]int64
}

func New() *Store {
	return &Store{
		byID:   make(map[int64]store.Record),
		byName: make(map[string]int64),
	}
}

var _ store.EmbedStore = (*Store)(nil)

func (s *Store) GetByID(_ context.Context, id int64) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) GetByName(_ context.Context, name string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *Store) Create(_ context.Context, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(rec)
}

func (s *Store) Update(_ context.Context, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[rec.ID]
	if !ok {
		return store.ErrNotFound
	}
	rec.Name = old.Name
	s.byID[rec.ID] = rec
	return nil
}

func (s *Store) Rename(_ context.Context, oldID int64, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[oldID]
	if !ok {
		return store.ErrNotFound
	}
	if rec.ID != oldID {
		if _, taken := s.byID[rec.ID]; taken {
			return store.ErrIDExists
		}
	}
	if rec.Name != old.Name {
		if _, taken := s.byName[rec.Name]; taken {
			return store.ErrNameExists
		}
	}
	delete(s.byID, oldID)
	delete(s.byName, old.Name)
	s.byID[rec.ID] = rec
	s.byName[rec.Name] = rec.ID
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byName, rec.Name)
	return nil
}

func (s *Store) List(_ context.Context) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Record, 0, len(s.byID))
	for _, rec := range s.byID {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) insertLocked(rec store.Record) error {
	if _, taken := s.byID[rec.ID]; taken {
		return store.ErrIDExists
	}
	if _, taken := s.byName[rec.Name]; taken {
		return store.ErrNameExists
	}
	s.byID[rec.ID] = rec
	s.byName[rec.Name] = rec.ID
	return nil
}
