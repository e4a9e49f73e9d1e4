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

package chunk

import (
	"github.com/poiesic/recallit/core"
)

const (
	// DefaultSize is the default maximum chunk length in characters.
	DefaultSize = 6000

	// DefaultOverlap is the default number of characters shared between
	// consecutive chunks.
	DefaultOverlap = 600
)

// Splitter splits document text into overlapping, bounded-size chunks.
// Lengths are measured in runes, not bytes: transcripts are largely CJK and
// the size budget is a character count.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a Splitter with the given chunk size and overlap.
// overlap must be strictly smaller than size, otherwise the splitter could
// not make progress.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 {
		return nil, ErrInvalidOverlap
	}
	if overlap >= size {
		return nil, ErrOverlapTooLarge
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the configured maximum chunk length in characters.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured overlap length in characters.
func (s *Splitter) Overlap() int { return s.overlap }

// Split splits text into consecutive windows of at most Size characters.
// Every window after the first begins Overlap characters before the end of
// the previous window, so neighbors share exactly Overlap characters.
//
// Text no longer than Size (including empty text) yields a single chunk
// containing the whole text. The output is deterministic, and concatenating
// the chunks after trimming the leading Overlap characters of every chunk
// but the first reconstructs the input exactly.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) <= s.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + s.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end - s.overlap
	}
}

// SplitDocument splits a document and labels each chunk with the document ID
// and its 0-based sequence position.
func (s *Splitter) SplitDocument(doc core.Document) []core.Chunk {
	texts := s.Split(doc.Text)
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Text:       text,
		}
	}
	return chunks
}
