package storage

import (
	"context"

	"github.com/poiesic/scholarly/core"
)

// DedupStore is the narrow view of the memory store used by ingestion.
// Implementations must be thread-safe.
type DedupStore interface {
	// Exists reports whether a record with the given ID has been stored.
	Exists(ctx context.Context, id string) (bool, error)

	// Put persists a record keyed by record.ID.
	// Putting an ID that already exists is a no-op; the stored record is kept.
	// Sets InsertedAt on first write.
	Put(ctx context.Context, record *core.IngestionRecord) error
}

// RecordRepository provides the full set of record operations.
type RecordRepository interface {
	DedupStore

	// Get retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id string) (*core.IngestionRecord, error)

	// List returns up to limit records of a room, newest CreatedAt first.
	List(ctx context.Context, roomID string, limit int) ([]*core.IngestionRecord, error)

	// Count returns the number of records stored in a room.
	Count(ctx context.Context, roomID string) (int, error)

	// FindSimilar finds records of a room whose vectors score >= minSimilarity
	// against the query vector. Records without vectors are skipped.
	// Results are ordered by similarity score (highest first), up to limit.
	FindSimilar(ctx context.Context, roomID string, vector []float32, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error)

	// SetVector replaces the embedding of a stored record, leaving every
	// other field untouched. Returns ErrNotFound if the record doesn't exist.
	SetVector(ctx context.Context, id string, vector []float32) error

	// Close releases resources held by the repository.
	Close() error
}
