package recallit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/recallit/ai/mock"
	"github.com/poiesic/recallit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestKnowledgeBase(t *testing.T) (*KnowledgeBase, *mock.MockProvider) {
	t.Helper()

	provider := mock.NewMockProvider()
	kb, err := Open(filepath.Join(t.TempDir(), "kb"), WithProvider(provider), WithCollection("test"))
	require.NoError(t, err)
	t.Cleanup(func() { kb.Close() })

	return kb, provider
}

func TestOpenKnowledgeBase(t *testing.T) {
	kb, _ := openTestKnowledgeBase(t)

	assert.NotNil(t, kb.IndexRepository())
	assert.NotNil(t, kb.Provider())
	assert.Equal(t, "test-cosine", kb.Collection())
}

func TestKnowledgeBaseEndToEnd(t *testing.T) {
	ctx := context.Background()
	kb, provider := openTestKnowledgeBase(t)

	pipeline, err := kb.NewIngestionPipeline()
	require.NoError(t, err)

	result := pipeline.IngestDocument(ctx, &core.Document{ID: "gut", Text: "腸胃炎要多補充水分"})
	require.NoError(t, result.Err)

	engine, err := kb.NewRetrievalEngine()
	require.NoError(t, err)
	chunks, err := engine.Retrieve(ctx, "肚子痛該怎麼辦？")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "gut", chunks[0].DocumentID)

	session, err := kb.NewChatSession()
	require.NoError(t, err)
	provider.GetMockGenerator().Response = "多喝水。"

	reply, err := session.Respond(ctx, "肚子痛該怎麼辦？", nil)
	require.NoError(t, err)
	assert.Equal(t, "多喝水。", reply.Text)
	assert.NotEmpty(t, reply.Sources)
}

func TestKnowledgeBaseReindex(t *testing.T) {
	ctx := context.Background()
	kb, provider := openTestKnowledgeBase(t)

	pipeline, err := kb.NewIngestionPipeline()
	require.NoError(t, err)
	result := pipeline.IngestDocument(ctx, &core.Document{ID: "doc_a", Text: "text"})
	require.NoError(t, result.Err)

	provider.GetMockEmbedder().ModelName = "upgraded-model"

	var progress nopWriter
	reindexer := kb.NewReindexer(nil, progress)
	require.NoError(t, reindexer.Run(ctx))

	info, err := kb.IndexRepository().Collection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "upgraded-model", info.EmbeddingModel)
}

func TestKnowledgeBaseReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "kb")

	kb, err := Open(dir, WithProvider(mock.NewMockProvider()), WithCollection("test"))
	require.NoError(t, err)

	pipeline, err := kb.NewIngestionPipeline()
	require.NoError(t, err)
	result := pipeline.IngestDocument(ctx, &core.Document{ID: "doc_a", Text: "persisted"})
	require.NoError(t, result.Err)
	require.NoError(t, kb.Close())

	reopened, err := Open(dir, WithProvider(mock.NewMockProvider()), WithCollection("test"))
	require.NoError(t, err)
	defer reopened.Close()

	exists, err := reopened.IndexRepository().HasDocument(ctx, "doc_a")
	require.NoError(t, err)
	assert.True(t, exists)

	entry, err := reopened.IndexRepository().GetEntry(ctx, core.EntryID("doc_a", 0))
	require.NoError(t, err)
	assert.Equal(t, "persisted", entry.Text)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
