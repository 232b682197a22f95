package ingestion

import (
	"fmt"
	"time"

	"github.com/poiesic/scholarly/core"
)

// FailureKind classifies a failure recorded during a cycle.
type FailureKind string

const (
	// FailureSourceUnavailable means the category's batch could not be listed.
	FailureSourceUnavailable FailureKind = "source_unavailable"
	// FailureStoreRead means an existence check failed for an item.
	FailureStoreRead FailureKind = "store_read"
	// FailureStoreWrite means Put failed for an item.
	FailureStoreWrite FailureKind = "store_write"
	// FailureInvalidItem means the source produced an item that failed validation.
	FailureInvalidItem FailureKind = "invalid_item"
)

// CategoryFailure is one failure recorded during a cycle.
// ItemID is empty for category-level failures.
type CategoryFailure struct {
	Category core.Category
	ItemID   string
	Kind     FailureKind
	Err      error
}

func (f CategoryFailure) String() string {
	if f.ItemID == "" {
		return fmt.Sprintf("%s [%s]: %v", f.Category, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s/%s [%s]: %v", f.Category, f.ItemID, f.Kind, f.Err)
}

// CategoryResult counts what happened to one category's batch.
type CategoryResult struct {
	Category core.Category
	Fetched  int
	Stored   int
	Skipped  int
	Empty    bool // the source returned no items
	Failed   bool // the source could not be listed
}

// CycleReport is the side-channel result of one cycle.
type CycleReport struct {
	RoomID     string
	StartedAt  time.Time
	FinishedAt time.Time
	Categories []CategoryResult
	Failures   []CategoryFailure
}

// Stored returns the number of new records written across all categories.
func (r *CycleReport) Stored() int {
	n := 0
	for _, c := range r.Categories {
		n += c.Stored
	}
	return n
}

// Skipped returns the number of candidates that were already stored.
func (r *CycleReport) Skipped() int {
	n := 0
	for _, c := range r.Categories {
		n += c.Skipped
	}
	return n
}

// AllFailed reports whether every category failed to list. A health check
// can escalate when this holds for consecutive cycles.
func (r *CycleReport) AllFailed() bool {
	if len(r.Categories) == 0 {
		return false
	}
	for _, c := range r.Categories {
		if !c.Failed {
			return false
		}
	}
	return true
}

// Duration returns how long the cycle took.
func (r *CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
