package badger

import (
	"encoding/binary"
	"strings"

	"github.com/poiesic/recallit/core"
)

// Key prefixes for different data types
const (
	entryKeyPrefix    = "vecent:"
	documentKeyPrefix = "vecdoc:"
	collectionMetaKey = "veccol:meta"
)

// Document IDs are filename-derived and may contain the prefix separator, so
// composite keys use a NUL byte between the document ID and the entry ID.
const documentKeySep = "\x00"

// makeEntryKey generates a key for an index entry by ID.
func makeEntryKey(id core.ID) []byte {
	buf := make([]byte, len(entryKeyPrefix)+8)
	offset := copy(buf, entryKeyPrefix)
	// BigEndian so lexicographic key order matches numeric ID order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeDocumentKey generates a composite key for the document index.
// Format: prefix + documentID + NUL + entryID
func makeDocumentKey(documentID string, id core.ID) []byte {
	prefix := documentKeyPrefix + documentID + documentKeySep
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeDocumentPrefix generates the scan prefix for one document's entries.
func makeDocumentPrefix(documentID string) []byte {
	return []byte(documentKeyPrefix + documentID + documentKeySep)
}

// documentIDFromKey extracts the document ID from a document index key.
func documentIDFromKey(key []byte) string {
	trimmed := strings.TrimPrefix(string(key), documentKeyPrefix)
	if i := strings.Index(trimmed, documentKeySep); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}
