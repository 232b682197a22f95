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

// Package search recalls stored records relevant to a free-text query.
//
// The Searcher combines two signals within a single room:
//   - Semantic search using vector embeddings of record content
//   - Verbatim keyword matching with stop-word filtering over recent records
//
// Records found by both are boosted, and results are ranked by score.
package search
