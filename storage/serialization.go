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
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/recallit/core"
)

// Persisted values use the MUS binary format, composed from mus-go primitive
// serializers. Decoding is strict: malformed or truncated input produces an
// error, never a partially-populated value.

var (
	vectorSer   = ord.NewSliceSer[float32](raw.Float32)
	metadataSer = ord.NewMapSer[string, string](ord.String, ord.String)
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalIndexEntry serializes an IndexEntry to bytes.
func MarshalIndexEntry(entry *core.IndexEntry) []byte {
	buf := make([]byte, sizeIndexEntry(entry))
	n := varint.Uint64.Marshal(uint64(entry.Id), buf)
	n += ord.String.Marshal(entry.DocumentID, buf[n:])
	n += varint.Int.Marshal(entry.ChunkIndex, buf[n:])
	n += ord.String.Marshal(entry.Text, buf[n:])
	n += vectorSer.Marshal(entry.Vector, buf[n:])
	n += metadataSer.Marshal(entry.Metadata, buf[n:])
	varint.Int64.Marshal(entry.InsertedAt.UnixMicro(), buf[n:])
	return buf
}

// UnmarshalIndexEntry deserializes an IndexEntry from bytes.
func UnmarshalIndexEntry(data []byte) (*core.IndexEntry, error) {
	var (
		entry core.IndexEntry
		n     int
	)
	id, c, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: entry id: %w", ErrSerializationFailed, err)
	}
	entry.Id = core.ID(id)
	n += c

	if entry.DocumentID, c, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: document id: %w", ErrSerializationFailed, err)
	}
	n += c

	if entry.ChunkIndex, c, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: chunk index: %w", ErrSerializationFailed, err)
	}
	n += c

	if entry.Text, c, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: text: %w", ErrSerializationFailed, err)
	}
	n += c

	if entry.Vector, c, err = vectorSer.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: vector: %w", ErrSerializationFailed, err)
	}
	n += c

	if entry.Metadata, c, err = metadataSer.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", ErrSerializationFailed, err)
	}
	n += c

	micros, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: inserted at: %w", ErrSerializationFailed, err)
	}
	entry.InsertedAt = time.UnixMicro(micros).UTC()

	return &entry, nil
}

func sizeIndexEntry(entry *core.IndexEntry) int {
	return varint.Uint64.Size(uint64(entry.Id)) +
		ord.String.Size(entry.DocumentID) +
		varint.Int.Size(entry.ChunkIndex) +
		ord.String.Size(entry.Text) +
		vectorSer.Size(entry.Vector) +
		metadataSer.Size(entry.Metadata) +
		varint.Int64.Size(entry.InsertedAt.UnixMicro())
}

// MarshalCollectionInfo serializes a CollectionInfo to bytes.
func MarshalCollectionInfo(info *core.CollectionInfo) []byte {
	buf := make([]byte, sizeCollectionInfo(info))
	n := ord.String.Marshal(info.Name, buf)
	n += ord.String.Marshal(info.Metric, buf[n:])
	n += ord.String.Marshal(info.EmbeddingModel, buf[n:])
	n += varint.Int.Marshal(info.Dimension, buf[n:])
	varint.Int64.Marshal(info.CreatedAt.UnixMicro(), buf[n:])
	return buf
}

// UnmarshalCollectionInfo deserializes a CollectionInfo from bytes.
func UnmarshalCollectionInfo(data []byte) (*core.CollectionInfo, error) {
	var (
		info core.CollectionInfo
		n    int
		c    int
		err  error
	)
	if info.Name, c, err = ord.String.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: collection name: %w", ErrSerializationFailed, err)
	}
	n += c

	if info.Metric, c, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: metric: %w", ErrSerializationFailed, err)
	}
	n += c

	if info.EmbeddingModel, c, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: embedding model: %w", ErrSerializationFailed, err)
	}
	n += c

	if info.Dimension, c, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: dimension: %w", ErrSerializationFailed, err)
	}
	n += c

	micros, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: created at: %w", ErrSerializationFailed, err)
	}
	info.CreatedAt = time.UnixMicro(micros).UTC()

	return &info, nil
}

func sizeCollectionInfo(info *core.CollectionInfo) int {
	return ord.String.Size(info.Name) +
		ord.String.Size(info.Metric) +
		ord.String.Size(info.EmbeddingModel) +
		varint.Int.Size(info.Dimension) +
		varint.Int64.Size(info.CreatedAt.UnixMicro())
}
