package badger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/recallit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend(t *testing.T) {
	t.Run("in-memory", func(t *testing.T) {
		backend, err := OpenBackend("", true)
		require.NoError(t, err)
		defer backend.Close()

		assert.False(t, backend.IsClosed())
	})

	t.Run("creates directory on disk", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "index")

		backend, err := OpenBackend(dir, false)
		require.NoError(t, err)
		defer backend.Close()

		assert.DirExists(t, dir)
	})

	t.Run("rejects file path", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "not-a-dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		_, err := OpenBackend(file, false)
		assert.Error(t, err)
	})

	t.Run("close is observable", func(t *testing.T) {
		backend, err := OpenBackend("", true)
		require.NoError(t, err)

		require.NoError(t, backend.Close())
		assert.True(t, backend.IsClosed())
	})
}

func TestEntryKeys(t *testing.T) {
	t.Run("distinct ids produce distinct keys", func(t *testing.T) {
		a := makeEntryKey(core.EntryID("doc_a", 0))
		b := makeEntryKey(core.EntryID("doc_a", 1))
		assert.NotEqual(t, a, b)
	})

	t.Run("key order follows id order", func(t *testing.T) {
		low := makeEntryKey(core.ID(1))
		high := makeEntryKey(core.ID(256))
		assert.Equal(t, -1, bytes.Compare(low, high))
	})
}

func TestDocumentKeys(t *testing.T) {
	t.Run("round-trips document id", func(t *testing.T) {
		key := makeDocumentKey("cofit211", core.EntryID("cofit211", 2))
		assert.Equal(t, "cofit211", documentIDFromKey(key))
	})

	t.Run("separator survives prefix collisions", func(t *testing.T) {
		// "doc" must not match entries of "doc_extra"
		prefix := makeDocumentPrefix("doc")
		key := makeDocumentKey("doc_extra", core.EntryID("doc_extra", 0))
		assert.NotEqual(t, prefix, key[:len(prefix)])
	})

	t.Run("document id containing prefix separator", func(t *testing.T) {
		key := makeDocumentKey("a:b", core.EntryID("a:b", 0))
		assert.Equal(t, "a:b", documentIDFromKey(key))
	})
}

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"identical unit", []float32{1, 0}, []float32{1, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"general", []float32{0.5, 0.5}, []float32{0.5, 0.5}, 0.5},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, dotProduct(tt.a, tt.b), 1e-6)
		})
	}
}
