package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpusFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadCorpus(t *testing.T) {
	t.Run("loads txt and json transcripts sorted by id", func(t *testing.T) {
		dir := t.TempDir()
		writeCorpusFile(t, dir, "video_b.txt", "plain transcript")
		writeCorpusFile(t, dir, "video_a.json", `{"text": "json transcript"}`)
		writeCorpusFile(t, dir, "notes.md", "ignored")
		writeCorpusFile(t, dir, ".hidden.txt", "ignored")

		docs, err := LoadCorpus(dir)
		require.NoError(t, err)
		require.Len(t, docs, 2)

		assert.Equal(t, "video_a", docs[0].ID)
		assert.Equal(t, "json transcript", docs[0].Text)
		assert.Equal(t, "video_b", docs[1].ID)
		assert.Equal(t, "plain transcript", docs[1].Text)
	})

	t.Run("empty directory", func(t *testing.T) {
		docs, err := LoadCorpus(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadCorpus(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("json without text field fails the load", func(t *testing.T) {
		dir := t.TempDir()
		writeCorpusFile(t, dir, "broken.json", `{"transcript": "wrong key"}`)

		_, err := LoadCorpus(dir)
		assert.ErrorIs(t, err, ErrMissingTextField)
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("txt keeps content verbatim", func(t *testing.T) {
		dir := t.TempDir()
		writeCorpusFile(t, dir, "cofit211.txt", "好的 今天我們來談談腸胃健康\n")

		doc, err := LoadFile(filepath.Join(dir, "cofit211.txt"))
		require.NoError(t, err)
		assert.Equal(t, "cofit211", doc.ID)
		assert.Equal(t, "好的 今天我們來談談腸胃健康\n", doc.Text)
	})

	t.Run("json with empty text is valid", func(t *testing.T) {
		dir := t.TempDir()
		writeCorpusFile(t, dir, "empty.json", `{"text": ""}`)

		doc, err := LoadFile(filepath.Join(dir, "empty.json"))
		require.NoError(t, err)
		assert.Equal(t, "empty", doc.ID)
		assert.Empty(t, doc.Text)
	})

	t.Run("malformed json", func(t *testing.T) {
		dir := t.TempDir()
		writeCorpusFile(t, dir, "bad.json", `{`)

		_, err := LoadFile(filepath.Join(dir, "bad.json"))
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		dir := t.TempDir()
		writeCorpusFile(t, dir, "notes.md", "x")

		_, err := LoadFile(filepath.Join(dir, "notes.md"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}
