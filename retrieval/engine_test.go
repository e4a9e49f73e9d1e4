package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/recallit/ai/mock"
	"github.com/poiesic/recallit/core"
	"github.com/poiesic/recallit/ingestion"
	"github.com/poiesic/recallit/storage"
	"github.com/poiesic/recallit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) storage.IndexRepository {
	t.Helper()
	repo, backend, err := badger.NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

// seedTranscripts indexes a few short transcripts through the real pipeline
// so retrieval sees exactly what ingestion writes.
func seedTranscripts(t *testing.T, repo storage.IndexRepository, embedder *mock.MockEmbedder, docs map[string]string) {
	t.Helper()
	pipeline, err := ingestion.NewPipeline(repo, embedder, ingestion.CollectionName("test"))
	require.NoError(t, err)

	for id, text := range docs {
		result := pipeline.IngestDocument(context.Background(), &core.Document{ID: id, Text: text})
		require.NoError(t, result.Err)
	}
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nearest chunks most similar first", func(t *testing.T) {
		repo := newTestRepo(t)
		embedder := mock.NewMockEmbedder()
		// Hand-placed vectors so the ranking is known.
		vectorFor := map[string][]float32{
			"肚子痛通常是腸胃發炎引起的": {1, 0, 0},
			"腸胃炎要多補充水分":      {0.9, 0.435889894, 0},
			"睡眠品質與運動習慣有關":    {0, 0, 1},
			"肚子痛該怎麼辦？":       {1, 0, 0},
		}
		embed := func(text string) []float32 {
			v, ok := vectorFor[text]
			if !ok {
				v = []float32{0, 1, 0}
			}
			return v
		}
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return embed(text), nil
		}
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			vectors := make([][]float32, len(texts))
			for i, text := range texts {
				vectors[i] = embed(text)
			}
			return vectors, nil
		}

		seedTranscripts(t, repo, embedder, map[string]string{
			"gut":   "肚子痛通常是腸胃發炎引起的",
			"水分":    "腸胃炎要多補充水分",
			"sleep": "睡眠品質與運動習慣有關",
		})

		engine, err := NewEngine(repo, embedder)
		require.NoError(t, err)

		chunks, err := engine.Retrieve(ctx, "肚子痛該怎麼辦？")
		require.NoError(t, err)
		require.Len(t, chunks, 3)

		assert.Equal(t, "肚子痛通常是腸胃發炎引起的", chunks[0].Text)
		assert.Equal(t, "gut", chunks[0].DocumentID)
		assert.Equal(t, "腸胃炎要多補充水分", chunks[1].Text)
		assert.Equal(t, "睡眠品質與運動習慣有關", chunks[2].Text)
		assert.Less(t, chunks[0].Distance, chunks[1].Distance)
		assert.Less(t, chunks[1].Distance, chunks[2].Distance)
	})

	t.Run("k limits the result count", func(t *testing.T) {
		repo := newTestRepo(t)
		embedder := mock.NewMockEmbedder()
		seedTranscripts(t, repo, embedder, map[string]string{
			"a": "first", "b": "second", "c": "third", "d": "fourth",
		})

		engine, err := NewEngine(repo, embedder, WithK(2))
		require.NoError(t, err)

		chunks, err := engine.Retrieve(ctx, "anything")
		require.NoError(t, err)
		assert.Len(t, chunks, 2)
	})

	t.Run("blank query yields nothing", func(t *testing.T) {
		repo := newTestRepo(t)
		embedder := mock.NewMockEmbedder()
		seedTranscripts(t, repo, embedder, map[string]string{"a": "text"})

		engine, err := NewEngine(repo, embedder)
		require.NoError(t, err)

		chunks, err := engine.Retrieve(ctx, "   ")
		require.NoError(t, err)
		assert.Empty(t, chunks)
		// Nothing blank ever reaches the embedder
		assert.Equal(t, 1, embedder.CallCount())
	})

	t.Run("empty store yields nothing", func(t *testing.T) {
		repo := newTestRepo(t)
		engine, err := NewEngine(repo, mock.NewMockEmbedder())
		require.NoError(t, err)

		chunks, err := engine.Retrieve(ctx, "肚子痛該怎麼辦？")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("model mismatch fails loudly", func(t *testing.T) {
		repo := newTestRepo(t)
		indexedWith := mock.NewMockEmbedder()
		seedTranscripts(t, repo, indexedWith, map[string]string{"a": "text"})

		queryingWith := mock.NewMockEmbedder()
		queryingWith.ModelName = "some-other-model"
		engine, err := NewEngine(repo, queryingWith)
		require.NoError(t, err)

		_, err = engine.Retrieve(ctx, "query")
		assert.ErrorIs(t, err, storage.ErrModelMismatch)
	})

	t.Run("embedder failure propagates", func(t *testing.T) {
		repo := newTestRepo(t)
		embedder := mock.NewMockEmbedder()
		seedTranscripts(t, repo, embedder, map[string]string{"a": "text"})

		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("model unavailable")
		}

		engine, err := NewEngine(repo, embedder)
		require.NoError(t, err)

		_, err = engine.Retrieve(ctx, "query")
		assert.ErrorContains(t, err, "model unavailable")
	})
}

func TestNewEngineValidation(t *testing.T) {
	repo := newTestRepo(t)
	_, err := NewEngine(repo, mock.NewMockEmbedder(), WithK(0))
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestCumulativeQuery(t *testing.T) {
	tests := []struct {
		name     string
		messages []core.Message
		want     string
	}{
		{
			name: "joins user turns with spaces",
			messages: []core.Message{
				{Role: core.RoleAssistant, Content: "您好!我是您的 AI 諮詢師。有什麼我可以幫您的嗎?"},
				{Role: core.RoleUser, Content: "肚子痛該怎麼辦？"},
				{Role: core.RoleAssistant, Content: "可能是腸胃發炎"},
				{Role: core.RoleUser, Content: "那要吃什麼?"},
			},
			want: "肚子痛該怎麼辦？ 那要吃什麼?",
		},
		{
			name:     "no user turns",
			messages: []core.Message{{Role: core.RoleAssistant, Content: "hi"}},
			want:     "",
		},
		{
			name:     "nil conversation",
			messages: nil,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CumulativeQuery(tt.messages))
		})
	}
}

type recordingMonitor struct {
	mu        sync.Mutex
	started   int
	completed int
	matches   int
	elapsed   time.Duration
}

func (m *recordingMonitor) RetrievalStarted(query string, k int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *recordingMonitor) RetrievalCompleted(query string, matches int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
	m.matches = matches
	m.elapsed = elapsed
}

func TestRetrievalMonitor(t *testing.T) {
	repo := newTestRepo(t)
	embedder := mock.NewMockEmbedder()
	seedTranscripts(t, repo, embedder, map[string]string{"a": "text"})

	monitor := &recordingMonitor{}
	engine, err := NewEngine(repo, embedder, WithMonitor(monitor))
	require.NoError(t, err)

	_, err = engine.Retrieve(context.Background(), "query")
	require.NoError(t, err)

	assert.Equal(t, 1, monitor.started)
	assert.Equal(t, 1, monitor.completed)
	assert.Equal(t, 1, monitor.matches)
}
