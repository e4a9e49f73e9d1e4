package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/recallit/core"
)

// transcriptJSON is the accepted schema for .json transcript files.
type transcriptJSON struct {
	Text *string `json:"text"`
}

// LoadCorpus reads every transcript in a directory and returns the documents
// sorted by ID. Files with a .txt extension are read verbatim; .json files
// must carry a top-level "text" string field. Other files are ignored.
//
// The document ID is the filename without its extension.
func LoadCorpus(dir string) ([]*core.Document, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}

	var docs []*core.Document
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || strings.HasPrefix(dirEntry.Name(), ".") {
			continue
		}

		ext := strings.ToLower(filepath.Ext(dirEntry.Name()))
		if ext != ".txt" && ext != ".json" {
			continue
		}

		doc, err := LoadFile(filepath.Join(dir, dirEntry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	// ReadDir returns entries in filename order, which matches ID order
	// because the ID is the filename stem.
	return docs, nil
}

// LoadFile reads a single transcript file into a document.
func LoadFile(path string) (*core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))
	id := strings.TrimSuffix(name, filepath.Ext(name))

	switch ext {
	case ".txt":
		return &core.Document{ID: id, Text: string(data)}, nil

	case ".json":
		var parsed transcriptJSON
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		if parsed.Text == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingTextField, name)
		}
		return &core.Document{ID: id, Text: *parsed.Text}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}
