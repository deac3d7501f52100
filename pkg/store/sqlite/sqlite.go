// Package sqlite provides a SQLite-backed knowledge store driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/mentor/pkg/store"
	"github.com/papercomputeco/mentor/pkg/teaching"
)

const schema = `
CREATE TABLE IF NOT EXISTS teachings (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	scope TEXT NOT NULL CHECK (scope IN ('global','session')),
	session_id TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS teachings_scope_created_idx
	ON teachings (scope, created_at DESC);
`

// Driver implements store.Driver backed by SQLite.
// Tags are stored as a JSON array since SQLite has no array type.
type Driver struct {
	db *sql.DB
}

// NewDriver opens (or creates) the SQLite database at dbPath and ensures the
// teachings schema exists. Use ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Driver{db: db}, nil
}

// Insert durably persists a teaching.
func (d *Driver) Insert(ctx context.Context, t *teaching.Teaching) error {
	if t == nil {
		return errors.New("cannot insert nil teaching")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO teachings (id, text, tags, scope, session_id, created_at)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), ?)`,
		t.ID, t.Text, string(tags), string(t.Scope), t.SessionID, t.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return store.ConflictError{ID: t.ID}
		}
		return fmt.Errorf("inserting teaching %s: %w", t.ID, err)
	}

	return nil
}

// Recent returns the newest visible teachings, created_at descending.
func (d *Driver) Recent(ctx context.Context, f store.Filter, limit int) ([]teaching.Teaching, error) {
	if limit <= 0 {
		return nil, nil
	}

	where, args := visibilityClause(f)
	query := fmt.Sprintf(
		`SELECT id, text, tags, scope, COALESCE(session_id, ''), created_at
		 FROM teachings
		 WHERE %s
		 ORDER BY created_at DESC
		 LIMIT ?`, where)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recent teachings: %w", err)
	}
	defer rows.Close()

	var teachings []teaching.Teaching
	for rows.Next() {
		t, err := scanTeaching(rows)
		if err != nil {
			return nil, err
		}
		teachings = append(teachings, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating teachings: %w", err)
	}
	return teachings, nil
}

// All yields every teaching ordered by created_at ascending.
func (d *Driver) All(ctx context.Context) iter.Seq2[teaching.Teaching, error] {
	return func(yield func(teaching.Teaching, error) bool) {
		rows, err := d.db.QueryContext(ctx,
			`SELECT id, text, tags, scope, COALESCE(session_id, ''), created_at
			 FROM teachings
			 ORDER BY created_at ASC`)
		if err != nil {
			yield(teaching.Teaching{}, fmt.Errorf("querying teachings: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTeaching(rows)
			if err != nil {
				yield(teaching.Teaching{}, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(teaching.Teaching{}, fmt.Errorf("iterating teachings: %w", err))
		}
	}
}

// Ping reports whether the database is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

func visibilityClause(f store.Filter) (string, []any) {
	switch f.Visibility {
	case store.VisibilitySession:
		return "scope = 'session' AND session_id = ?", []any{f.SessionID}
	case store.VisibilityAll:
		return "(scope = 'global' OR session_id = ?)", []any{f.SessionID}
	default:
		return "scope = 'global'", nil
	}
}

func scanTeaching(rows *sql.Rows) (teaching.Teaching, error) {
	var t teaching.Teaching
	var tags, scope string
	if err := rows.Scan(&t.ID, &t.Text, &tags, &scope, &t.SessionID, &t.CreatedAt); err != nil {
		return teaching.Teaching{}, fmt.Errorf("scanning teaching: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return teaching.Teaching{}, fmt.Errorf("unmarshaling tags for %s: %w", t.ID, err)
	}
	t.Scope = teaching.Scope(scope)
	return t, nil
}

var _ store.Driver = (*Driver)(nil)
