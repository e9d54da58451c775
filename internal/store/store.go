// Package store defines the persistence contract for named embed records.
package store

import (
	"context"
	"errors"

	"github.com/embedforge/embedforge/internal/embed"
)

var (
	// ErrNotFound indicates no record matches the given id or name.
	ErrNotFound = errors.New("embed record not found")
	// ErrIDExists indicates the id is already taken by another record.
	ErrIDExists = errors.New("embed id already exists")
	// ErrNameExists indicates the name is already taken by another record.
	ErrNameExists = errors.New("embed name already exists")
)

// Record is one persisted embed. ID and Name are each globally unique.
type Record struct {
	ID    int64       `json:"id"`
	Name  string      `json:"name"`
	Draft embed.Draft `json:"draft"`
}

// EmbedStore is the gateway to wherever embed records live. Implementations
// must be safe under concurrent use from independent sessions, and Create
// and Rename must enforce id/name uniqueness atomically.
type EmbedStore interface {
	GetByID(ctx context.Context, id int64) (Record, error)
	GetByName(ctx context.Context, name string) (Record, error)
	// Create inserts a new record. Returns ErrIDExists or ErrNameExists
	// on a uniqueness collision.
	Create(ctx context.Context, rec Record) error
	// Update replaces the draft of the record identified by rec.ID.
	Update(ctx context.Context, rec Record) error
	// Rename moves the record at oldID to a new id/name in one atomic
	// step, collision-checked like Create.
	Rename(ctx context.Context, oldID int64, rec Record) error
	Delete(ctx context.Context, id int64) error
	// List returns all records ordered by id. Used by the admin surface.
	List(ctx context.Context) ([]Record, error)
}
