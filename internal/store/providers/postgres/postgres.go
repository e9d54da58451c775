// Package postgres implements store.EmbedStore on a Postgres table.
// Uniqueness is enforced by the primary key and a unique index, so
// check-then-insert races between sessions are settled by the database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/embedforge/embedforge/internal/embed"
	"github.com/embedforge/embedforge/internal/store"
)

const uniqueViolationCode = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS embeds (
	id         BIGINT PRIMARY KEY,
	name       TEXT NOT NULL,
	draft      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS embeds_name_key ON embeds (name);
`

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects the pool and ensures the embeds table exists.
func New(ctx context.Context, log *slog.Logger, dsn string) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{
		pool:   pool,
		logger: log.With(slog.String("service", "store")),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

var _ store.EmbedStore = (*Store)(nil)

func (s *Store) GetByID(ctx context.Context, id int64) (store.Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, name, draft FROM embeds WHERE id = $1`, id)
	return scanRecord(row)
}

func (s *Store) GetByName(ctx context.Context, name string) (store.Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, name, draft FROM embeds WHERE name = $1`, name)
	return scanRecord(row)
}

func (s *Store) Create(ctx context.Context, rec store.Record) error {
	draft, err := json.Marshal(rec.Draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO embeds (id, name, draft) VALUES ($1, $2, $3)`,
		rec.ID, rec.Name, draft,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, rec store.Record) error {
	draft, err := json.Marshal(rec.Draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE embeds SET draft = $2, updated_at = now() WHERE id = $1`,
		rec.ID, draft,
	)
	if err != nil {
		return fmt.Errorf("update embed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Rename(ctx context.Context, oldID int64, rec store.Record) error {
	draft, err := json.Marshal(rec.Draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rename: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM embeds WHERE id = $1`, oldID)
	if err != nil {
		return fmt.Errorf("delete old embed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO embeds (id, name, draft) VALUES ($1, $2, $3)`,
		rec.ID, rec.Name, draft,
	); err != nil {
		return mapUniqueViolation(err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM embeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete embed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]store.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, draft FROM embeds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list embeds: %w", err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (store.Record, error) {
	var (
		rec   store.Record
		draft []byte
	)
	if err := row.Scan(&rec.ID, &rec.Name, &draft); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Record{}, store.ErrNotFound
		}
		return store.Record{}, fmt.Errorf("scan embed: %w", err)
	}
	var d embed.Draft
	if err := json.Unmarshal(draft, &d); err != nil {
		return store.Record{}, fmt.Errorf("unmarshal draft: %w", err)
	}
	rec.Draft = d
	return rec, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		if strings.Contains(pgErr.ConstraintName, "name") {
			return store.ErrNameExists
		}
		return store.ErrIDExists
	}
	return fmt.Errorf("insert embed: %w", err)
}
