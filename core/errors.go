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

import "errors"

// Domain validation errors
var (
	// ErrInvalidCandidate indicates a CandidateItem failed validation.
	ErrInvalidCandidate = errors.New("invalid candidate item")

	// ErrInvalidRecord indicates an IngestionRecord failed validation.
	ErrInvalidRecord = errors.New("invalid ingestion record")

	// ErrEmptyID indicates the ID field is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyRoomID indicates the RoomID field is empty.
	ErrEmptyRoomID = errors.New("room id cannot be empty")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidSourceTag indicates an unknown SourceTag value.
	ErrInvalidSourceTag = errors.New("invalid source tag")
)
