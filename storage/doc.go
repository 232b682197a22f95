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

// Package storage provides the storage abstraction layer for scholarly.
//
// The ingestion core only needs two operations from the memory store, captured
// by DedupStore:
//
//	Exists(ctx, id) (bool, error)
//	Put(ctx, record) error
//
// RecordRepository extends DedupStore with the read paths used by listing,
// recall and summarization. Two backends are provided:
//
//   - storage/badger: embedded BadgerDB key/value store (default)
//   - storage/sqlite: single-file SQLite database
//
// # Idempotent Writes
//
// Records are keyed by their stable source identifier. Put on an existing
// key leaves the stored record untouched, so running the same ingestion
// cycle twice never produces duplicates.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	repo := badger.NewRecordRepository(backend)
//	defer backend.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
