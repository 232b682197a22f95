package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a fixed-width hash of a record's string identifier.
// Storage backends use it to build fixed-length index keys.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// roomNamespace scopes room UUIDs so they never collide with other UUIDv5 spaces.
var roomNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://poiesic.com/scholarly/rooms"))

// RoomID derives the destination namespace for an agent's records.
// The same (name, agentID) pair always maps to the same room.
func RoomID(name, agentID string) string {
	return uuid.NewSHA1(roomNamespace, []byte(name+"-"+agentID)).String()
}

// Category is an opaque topic tag, e.g. an arXiv subject class like "cs.AI".
type Category string

// SourceTag identifies which upstream produced an item.
type SourceTag string

const (
	// SourceArxiv marks items fetched from the arXiv API.
	SourceArxiv SourceTag = "arxiv"
	// SourceWebSearch marks items fetched from a web search API.
	SourceWebSearch SourceTag = "websearch"
)

// CandidateItem is a normalized item returned by a source, not yet known to be new.
// ID is derived from the upstream's canonical identifier and is stable across fetches.
type CandidateItem struct {
	ID          string
	Title       string
	Body        string
	URL         string
	Authors     []string
	PublishedAt time.Time
	UpdatedAt   time.Time
	Source      SourceTag
	Category    Category
}

// IngestionRecord is the persisted form of a candidate item.
// Records are written once and never modified by the ingestion core.
type IngestionRecord struct {
	ID         string    // CandidateItem.ID, primary key
	RoomID     string    // Destination namespace, see RoomID
	Source     SourceTag
	Category   Category
	Title      string
	URL        string
	Content    string    // Rendered title, body and metadata
	Vector     []float32 // Optional embedding of Content
	CreatedAt  time.Time // Publication time when known, otherwise ingestion time
	InsertedAt time.Time // Set by the store on first write
}

// SimilarityMatch pairs a record with its similarity to a query vector.
type SimilarityMatch struct {
	Record *IngestionRecord
	Score  float32
}
