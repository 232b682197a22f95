// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"strings"
)

// ValidateCandidate validates a CandidateItem according to domain rules.
//
// Validation rules:
//   - ID must not be blank
//   - Source must be a known SourceTag
//
// NOT validated:
//   - Title and Body (upstreams occasionally return empty abstracts)
//   - Timestamps (zero means unknown)
func ValidateCandidate(item *CandidateItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidCandidate)
	}

	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptyID)
	}

	if err := ValidateSourceTag(item.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
	}

	return nil
}

// ValidateRecord validates an IngestionRecord before it is persisted.
//
// Validation rules:
//   - ID, RoomID and Content must not be empty
//   - Source must be a known SourceTag
//
// NOT validated (optional):
//   - Vector (empty when no embedder is configured)
//   - InsertedAt (set by the store)
func ValidateRecord(record *IngestionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyID)
	}

	if record.RoomID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyRoomID)
	}

	if record.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyContent)
	}

	if err := ValidateSourceTag(record.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	return nil
}

// ValidateSourceTag validates that a SourceTag has a known value.
func ValidateSourceTag(tag SourceTag) error {
	if tag != SourceArxiv && tag != SourceWebSearch {
		return fmt.Errorf("%w: value %q", ErrInvalidSourceTag, tag)
	}
	return nil
}
