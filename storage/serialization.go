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

package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/scholarly/core"
)

// recordFormatVersion prefixes every encoded record.
const recordFormatVersion uint64 = 1

// MarshalRecord serializes an IngestionRecord to bytes.
func MarshalRecord(record *core.IngestionRecord) []byte {
	size := varint.Uint64.Size(recordFormatVersion) +
		ord.String.Size(record.ID) +
		ord.String.Size(record.RoomID) +
		ord.String.Size(string(record.Source)) +
		ord.String.Size(string(record.Category)) +
		ord.String.Size(record.Title) +
		ord.String.Size(record.URL) +
		ord.String.Size(record.Content) +
		vectorSize(record.Vector) +
		varint.Int64.Size(timeToMicros(record.CreatedAt)) +
		varint.Int64.Size(timeToMicros(record.InsertedAt))

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(recordFormatVersion, buf)
	n += ord.String.Marshal(record.ID, buf[n:])
	n += ord.String.Marshal(record.RoomID, buf[n:])
	n += ord.String.Marshal(string(record.Source), buf[n:])
	n += ord.String.Marshal(string(record.Category), buf[n:])
	n += ord.String.Marshal(record.Title, buf[n:])
	n += ord.String.Marshal(record.URL, buf[n:])
	n += ord.String.Marshal(record.Content, buf[n:])
	n += marshalVector(record.Vector, buf[n:])
	n += varint.Int64.Marshal(timeToMicros(record.CreatedAt), buf[n:])
	varint.Int64.Marshal(timeToMicros(record.InsertedAt), buf[n:])
	return buf
}

// UnmarshalRecord deserializes an IngestionRecord from bytes.
func UnmarshalRecord(data []byte) (*core.IngestionRecord, error) {
	r := reader{data: data}

	version := r.uint64()
	if r.err == nil && version != recordFormatVersion {
		return nil, fmt.Errorf("%w: unknown record format %d", ErrSerializationFailed, version)
	}

	record := &core.IngestionRecord{
		ID:       r.string(),
		RoomID:   r.string(),
		Source:   core.SourceTag(r.string()),
		Category: core.Category(r.string()),
		Title:    r.string(),
		URL:      r.string(),
		Content:  r.string(),
	}
	record.Vector = r.vector()
	record.CreatedAt = microsToTime(r.int64())
	record.InsertedAt = microsToTime(r.int64())

	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}
	return record, nil
}

// MarshalVector serializes an embedding vector to bytes.
func MarshalVector(vector []float32) []byte {
	buf := make([]byte, vectorSize(vector))
	marshalVector(vector, buf)
	return buf
}

// UnmarshalVector deserializes an embedding vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	r := reader{data: data}
	vector := r.vector()
	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}
	return vector, nil
}

func vectorSize(vector []float32) int {
	size := varint.Uint64.Size(uint64(len(vector)))
	for _, v := range vector {
		size += varint.Uint32.Size(math.Float32bits(v))
	}
	return size
}

func marshalVector(vector []float32, buf []byte) int {
	n := varint.Uint64.Marshal(uint64(len(vector)), buf)
	for _, v := range vector {
		n += varint.Uint32.Marshal(math.Float32bits(v), buf[n:])
	}
	return n
}

// timeToMicros encodes the zero time as 0 so it survives a round trip.
func timeToMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microsToTime(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// reader walks an encoded buffer and keeps the first error.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}

func (r *reader) int64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.data[r.off:])
	r.off += n
	r.err = err
	return v
}

func (r *reader) vector() []float32 {
	length := r.uint64()
	if r.err != nil || length == 0 {
		return nil
	}
	// Each element takes at least one byte.
	if length > uint64(len(r.data)-r.off) {
		r.err = ErrTruncatedData
		return nil
	}
	vector := make([]float32, length)
	for i := range vector {
		if r.err != nil {
			return nil
		}
		bits, n, err := varint.Uint32.Unmarshal(r.data[r.off:])
		r.off += n
		r.err = err
		vector[i] = math.Float32frombits(bits)
	}
	if r.err != nil {
		return nil
	}
	return vector
}
