package ingestion

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/scholarly/core"
)

// SchedulerConfig is supplied once at construction and is immutable afterwards.
type SchedulerConfig struct {
	// RoomID scopes every record written by the scheduler. See core.RoomID.
	RoomID string

	// Categories are processed sequentially in this order.
	Categories []core.Category

	// MaxResultsPerCategory bounds the batch requested from the source.
	// It does not bound the number of new records stored.
	MaxResultsPerCategory int

	// CheckInterval is the delay between the end of one cycle and the start
	// of the next.
	CheckInterval time.Duration
}

// Validate checks that the configuration is complete.
func (c SchedulerConfig) Validate() error {
	if strings.TrimSpace(c.RoomID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, core.ErrEmptyRoomID)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrNoCategories)
	}
	seen := make(map[core.Category]struct{}, len(c.Categories))
	for _, category := range c.Categories {
		if strings.TrimSpace(string(category)) == "" {
			return fmt.Errorf("%w: blank category", ErrInvalidConfig)
		}
		if _, dup := seen[category]; dup {
			return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, ErrDuplicateCategory, category)
		}
		seen[category] = struct{}{}
	}
	if c.MaxResultsPerCategory <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidMaxResults)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: %w: must be positive", ErrInvalidConfig, ErrInvalidInterval)
	}
	return nil
}

func (c SchedulerConfig) clone() SchedulerConfig {
	c.Categories = slices.Clone(c.Categories)
	return c
}
