package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/scholarly/core"
)

// Key prefixes for different data types
const (
	recordPrefix     = "ingrec:"
	recordDatePrefix = "ingrecd:"
)

// makeRecordKey generates the primary key for a record by its string ID.
func makeRecordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

// makeRoomDatePrefix generates the prefix shared by all date index keys of a room.
// Format: prefix:roomID:
func makeRoomDatePrefix(roomID string) []byte {
	return []byte(recordDatePrefix + roomID + ":")
}

// makeRecordDateKey generates a composite key for the per-room date index.
// Format: prefix:roomID:createdAt:hash(id)
func makeRecordDateKey(roomID string, createdAt time.Time, id string) []byte {
	prefixBytes := makeRoomDatePrefix(roomID)
	buf := make([]byte, len(prefixBytes)+16) // 8 bytes for timestamp + 8 bytes for ID hash
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(max(createdAt.UnixMicro(), 0)))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(id)))
	return buf
}
