// Package sqlite implements storage.RecordRepository on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/poiesic/scholarly/core"
	"github.com/poiesic/scholarly/storage"
	_ "modernc.org/sqlite"
)

// Store implements storage.RecordRepository for SQLite.
// A single connection serializes writers.
type Store struct {
	db *sql.DB
}

var _ storage.RecordRepository = (*Store)(nil)

// Open opens (or creates) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id          TEXT PRIMARY KEY,
			room_id     TEXT NOT NULL,
			source      TEXT NOT NULL,
			category    TEXT NOT NULL DEFAULT '',
			title       TEXT NOT NULL DEFAULT '',
			url         TEXT NOT NULL DEFAULT '',
			content     TEXT NOT NULL,
			vector      BLOB,
			created_at  INTEGER NOT NULL,
			inserted_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_records_room_created ON records(room_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Exists reports whether a record with the given ID has been stored.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM records WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking record %s: %w", id, err)
	}
	return true, nil
}

// Put inserts a record; an existing ID is left untouched.
func (s *Store) Put(ctx context.Context, record *core.IngestionRecord) error {
	if err := core.ValidateRecord(record); err != nil {
		return err
	}

	insertedAt := time.Now().UTC().Truncate(time.Microsecond)
	var vector any
	if len(record.Vector) > 0 {
		vector = storage.MarshalVector(record.Vector)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, room_id, source, category, title, url, content, vector, created_at, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, record.ID, record.RoomID, string(record.Source), string(record.Category), record.Title, record.URL,
		record.Content, vector, record.CreatedAt.UnixMicro(), insertedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("inserting record %s: %w", record.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		record.InsertedAt = insertedAt
	}
	return nil
}

// SetVector replaces the embedding of a stored record.
func (s *Store) SetVector(ctx context.Context, id string, vector []float32) error {
	var encoded any
	if len(vector) > 0 {
		encoded = storage.MarshalVector(vector)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE records SET vector = ? WHERE id = ?", encoded, id)
	if err != nil {
		return fmt.Errorf("updating vector of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const selectColumns = "SELECT id, room_id, source, category, title, url, content, vector, created_at, inserted_at FROM records"

// Get retrieves a single record by ID.
func (s *Store) Get(ctx context.Context, id string) (*core.IngestionRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return record, err
}

// List returns up to limit records of a room, newest first.
func (s *Store) List(ctx context.Context, roomID string, limit int) ([]*core.IngestionRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	return s.query(ctx, selectColumns+" WHERE room_id = ? ORDER BY created_at DESC LIMIT ?", roomID, limit)
}

// Count returns the number of records stored in a room.
func (s *Store) Count(ctx context.Context, roomID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE room_id = ?", roomID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// FindSimilar scans the room's embedded records and ranks them by dot product.
func (s *Store) FindSimilar(ctx context.Context, roomID string, vector []float32, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	records, err := s.query(ctx, selectColumns+" WHERE room_id = ? AND vector IS NOT NULL", roomID)
	if err != nil {
		return nil, err
	}

	var results []*core.SimilarityMatch
	for _, record := range records {
		var score float32
		for i := 0; i < min(len(vector), len(record.Vector)); i++ {
			score += vector[i] * record.Vector[i]
		}
		if score >= minSimilarity {
			results = append(results, &core.SimilarityMatch{Record: record, Score: score})
		}
	}

	slices.SortFunc(results, func(a, b *core.SimilarityMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*core.IngestionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []*core.IngestionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*core.IngestionRecord, error) {
	var (
		r                     core.IngestionRecord
		source, category      string
		vector                []byte
		createdAt, insertedAt int64
	)
	err := row.Scan(&r.ID, &r.RoomID, &source, &category, &r.Title, &r.URL, &r.Content, &vector, &createdAt, &insertedAt)
	if err != nil {
		return nil, err
	}
	r.Source = core.SourceTag(source)
	r.Category = core.Category(category)
	r.CreatedAt = time.UnixMicro(createdAt).UTC()
	r.InsertedAt = time.UnixMicro(insertedAt).UTC()
	if len(vector) > 0 {
		if r.Vector, err = storage.UnmarshalVector(vector); err != nil {
			return nil, fmt.Errorf("decoding vector of %s: %w", r.ID, err)
		}
	}
	return &r, nil
}
