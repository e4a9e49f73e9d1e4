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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//
// NOT validated:
//   - Text (empty transcripts are ingested as a single empty chunk)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentID)
	}

	return nil
}

// ValidateIndexEntry validates an IndexEntry according to domain rules.
//
// Validation rules:
//   - DocumentID must not be empty
//   - ChunkIndex must not be negative
//   - Vector must not be empty
//   - Id must match EntryID(DocumentID, ChunkIndex)
func ValidateIndexEntry(entry *IndexEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidIndexEntry)
	}

	if entry.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIndexEntry, ErrEmptyDocumentID)
	}

	if entry.ChunkIndex < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidIndexEntry, ErrNegativeChunkIndex)
	}

	if len(entry.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidIndexEntry, ErrEmptyVector)
	}

	if entry.Id != EntryID(entry.DocumentID, entry.ChunkIndex) {
		return fmt.Errorf("%w: id %d does not match document %q chunk %d",
			ErrInvalidIndexEntry, entry.Id, entry.DocumentID, entry.ChunkIndex)
	}

	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant && role != RoleSystem {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}
