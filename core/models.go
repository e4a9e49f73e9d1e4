package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so identical content
// always maps to the same identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// EntryID derives the identifier of an index entry from its document ID and
// chunk index. Re-ingesting the same document yields the same entry IDs,
// which is what makes upserts idempotent.
func EntryID(documentID string, chunkIndex int) ID {
	return IDFromContent(documentID + "#" + strconv.Itoa(chunkIndex))
}

// Document is one normalized transcript, identified by a source identifier.
// Entry IDs derive from the document ID and chunk position, so re-ingesting
// a document overwrites its entries in place.
type Document struct {
	ID   string
	Text string
}

// Chunk is a contiguous slice of a document's text, bounded in length and
// overlapping its predecessor by a fixed number of characters.
type Chunk struct {
	DocumentID string
	Index      int // 0-based position within the document
	Text       string
}

// MetaDocumentID is the metadata key carrying the source document identifier.
const MetaDocumentID = "document_id"

// IndexEntry is the unit persisted in the vector store: an embedding bound to
// its source text and metadata. Metadata always carries at least the
// document ID under MetaDocumentID.
type IndexEntry struct {
	Id         ID
	DocumentID string
	ChunkIndex int
	Text       string
	Vector     []float32
	Metadata   map[string]string
	InsertedAt time.Time
}

// MetricCosine is the only similarity metric supported by this system.
const MetricCosine = "cosine"

// CollectionInfo is the persisted metadata of a vector collection.
// The embedding model identity is part of the collection so that queries
// embedded with a different model fail loudly instead of returning
// degraded similarity scores.
type CollectionInfo struct {
	Name           string
	Metric         string
	EmbeddingModel string
	Dimension      int
	CreatedAt      time.Time
}

// QueryMatch is a single nearest-neighbor result from the vector store.
type QueryMatch struct {
	Entry    *IndexEntry
	Distance float32 // cosine distance, smaller is more similar
}

// RetrievedChunk is a ranked piece of context returned by the retrieval engine.
type RetrievedChunk struct {
	Text       string
	DocumentID string
	Distance   float32
}

// Role identifies the author of a conversation turn.
type Role int

const (
	// RoleUser represents a human user turn.
	RoleUser Role = iota + 1
	// RoleAssistant represents an assistant turn.
	RoleAssistant
	// RoleSystem represents a system instruction.
	RoleSystem
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role
	Content string
}
