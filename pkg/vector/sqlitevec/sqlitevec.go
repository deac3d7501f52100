// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		zap.String("db_path", c.DBPath),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// EnsureCollection creates the mapping and vec0 tables for the given
// embedding dimensionality.
func (d *Driver) EnsureCollection(ctx context.Context, dimensions uint) error {
	if dimensions == 0 {
		return fmt.Errorf("embedding dimensions cannot be 0")
	}

	// vec0 virtual tables use integer rowids, so we need a mapping from
	// string point IDs to integer rowids. Payload fields live here too.
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS vec_points (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			point_id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			scope TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("creating points table: %w", err)
	}

	// Create the vec0 virtual table for vector storage and KNN queries.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := d.db.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table: %w", err)
	}

	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Upsert inserts or replaces the point for the given id.
func (d *Driver) Upsert(ctx context.Context, p vector.Point) error {
	embBlob := serializeFloat32(p.Embedding)

	tagsJSON, err := json.Marshal(p.Payload.Tags)
	if err != nil {
		return fmt.Errorf("marshaling tags for point %s: %w", p.ID, err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := p.Payload.CreatedAt.Format(time.RFC3339Nano)

	// Check if the point already exists
	var existingRowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM vec_points WHERE point_id = ?`, p.ID,
	).Scan(&existingRowID)

	switch err {
	case nil:
		// Point exists — update payload and embedding
		if _, err := tx.ExecContext(ctx,
			`UPDATE vec_points SET text = ?, tags = ?, scope = ?, session_id = ?, created_at = ? WHERE rowid = ?`,
			p.Payload.Text, string(tagsJSON), p.Payload.Scope, p.Payload.SessionID, createdAt, existingRowID,
		); err != nil {
			return fmt.Errorf("updating point %s: %w", p.ID, err)
		}

		// Update embedding in vec0 table via DELETE + INSERT
		// (vec0 does not support UPDATE)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
		); err != nil {
			return fmt.Errorf("deleting old embedding for point %s: %w", p.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			existingRowID, embBlob,
		); err != nil {
			return fmt.Errorf("re-inserting embedding for point %s: %w", p.ID, err)
		}
	case sql.ErrNoRows:
		// New point — insert into mapping table first to get the rowid
		result, err := tx.ExecContext(ctx,
			`INSERT INTO vec_points(point_id, text, tags, scope, session_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Payload.Text, string(tagsJSON), p.Payload.Scope, p.Payload.SessionID, createdAt,
		)
		if err != nil {
			return fmt.Errorf("inserting point %s: %w", p.ID, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid for point %s: %w", p.ID, err)
		}

		// Insert embedding into vec0 table with matching rowid
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, embBlob,
		); err != nil {
			return fmt.Errorf("inserting embedding for point %s: %w", p.ID, err)
		}
	default:
		return fmt.Errorf("checking for existing point %s: %w", p.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted point to sqlite-vec",
		zap.String("id", p.ID),
	)

	return nil
}

// Search returns up to topK nearest points by cosine similarity.
func (d *Driver) Search(ctx context.Context, embedding []float32, topK int) ([]vector.Result, error) {
	if topK <= 0 {
		topK = 10
	}

	queryBlob := serializeFloat32(embedding)

	// Use KNN query via vec0 MATCH, then JOIN back for the payload.
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			p.point_id,
			p.text,
			p.tags,
			p.scope,
			p.session_id,
			p.created_at,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_points p ON p.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.Result
	for rows.Next() {
		var (
			pointID, text, tagsJSON, scope, sessionID, createdAt string
			distance                                             float64
		)
		if err := rows.Scan(&pointID, &text, &tagsJSON, &scope, &sessionID, &createdAt, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		payload := vector.Payload{
			Text:      text,
			Scope:     scope,
			SessionID: sessionID,
		}
		if err := json.Unmarshal([]byte(tagsJSON), &payload.Tags); err != nil {
			return nil, fmt.Errorf("unmarshaling tags for point %s: %w", pointID, err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			payload.CreatedAt = ts
		}

		results = append(results, vector.Result{
			Point: vector.Point{
				ID:      pointID,
				Payload: payload,
			},
			// Cosine distance is 1 - similarity
			Score: float32(1.0 - distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Healthy reports whether the underlying database is reachable.
func (d *Driver) Healthy(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)
