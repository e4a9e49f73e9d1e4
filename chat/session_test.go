package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/recallit/ai/mock"
	"github.com/poiesic/recallit/core"
	"github.com/poiesic/recallit/ingestion"
	"github.com/poiesic/recallit/retrieval"
	"github.com/poiesic/recallit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, transcripts map[string]string, opts ...SessionOption) (*Session, *mock.MockGenerator) {
	t.Helper()

	repo, backend, err := badger.NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	embedder := mock.NewMockEmbedder()
	if len(transcripts) > 0 {
		pipeline, err := ingestion.NewPipeline(repo, embedder, ingestion.CollectionName("test"))
		require.NoError(t, err)
		for id, text := range transcripts {
			result := pipeline.IngestDocument(context.Background(), &core.Document{ID: id, Text: text})
			require.NoError(t, result.Err)
		}
	}

	engine, err := retrieval.NewEngine(repo, embedder)
	require.NoError(t, err)

	generator := mock.NewMockGenerator()
	return NewSession(engine, generator, opts...), generator
}

func TestSessionRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("records user and assistant turns", func(t *testing.T) {
		session, generator := newTestSession(t, map[string]string{"gut": "腸胃炎要多補充水分"})
		generator.Response = "多喝水，清淡飲食。"

		reply, err := session.Respond(ctx, "肚子痛該怎麼辦？", nil)
		require.NoError(t, err)
		assert.Equal(t, "多喝水，清淡飲食。", reply.Text)
		assert.NoError(t, reply.GenerationErr)

		messages := session.Conversation().Messages()
		require.Len(t, messages, 3)
		assert.Equal(t, Greeting, messages[0].Content)
		assert.Equal(t, core.RoleUser, messages[1].Role)
		assert.Equal(t, "肚子痛該怎麼辦？", messages[1].Content)
		assert.Equal(t, core.RoleAssistant, messages[2].Role)
		assert.Equal(t, "多喝水，清淡飲食。", messages[2].Content)
	})

	t.Run("system prompt embeds the best retrieved chunk", func(t *testing.T) {
		session, generator := newTestSession(t, map[string]string{"gut": "腸胃炎要多補充水分"})

		var prompted []core.Message
		generator.GenerateFunc = func(ctx context.Context, messages []core.Message, onDelta func(string) error) (string, error) {
			prompted = messages
			return "answer", nil
		}

		reply, err := session.Respond(ctx, "肚子痛該怎麼辦？", nil)
		require.NoError(t, err)
		require.Len(t, reply.Sources, 1)
		assert.Equal(t, "gut", reply.Sources[0].DocumentID)

		require.NotEmpty(t, prompted)
		assert.Equal(t, core.RoleSystem, prompted[0].Role)
		assert.Contains(t, prompted[0].Content, "諮詢師")
		assert.Contains(t, prompted[0].Content, "腸胃炎要多補充水分")
	})

	t.Run("generator sees only the trailing window", func(t *testing.T) {
		session, generator := newTestSession(t, nil)

		var prompted []core.Message
		generator.GenerateFunc = func(ctx context.Context, messages []core.Message, onDelta func(string) error) (string, error) {
			prompted = messages
			return "answer", nil
		}

		for i := 0; i < 5; i++ {
			_, err := session.Respond(ctx, "問題", nil)
			require.NoError(t, err)
		}

		// System prompt plus the last 5 turns, no matter how long the
		// history has grown.
		require.Len(t, prompted, 6)
		assert.Equal(t, core.RoleSystem, prompted[0].Role)
		// The final prompted turn is the user input just appended.
		assert.Equal(t, core.RoleUser, prompted[5].Role)
	})

	t.Run("streams deltas", func(t *testing.T) {
		session, generator := newTestSession(t, nil)
		generator.Response = "多喝水 清淡飲食 好好休息"

		var deltas []string
		reply, err := session.Respond(ctx, "肚子痛該怎麼辦？", func(delta string) error {
			deltas = append(deltas, delta)
			return nil
		})
		require.NoError(t, err)
		assert.Greater(t, len(deltas), 1)
		assert.Equal(t, reply.Text, strings.Join(deltas, ""))
	})

	t.Run("empty store answers without context", func(t *testing.T) {
		session, generator := newTestSession(t, nil)

		var prompted []core.Message
		generator.GenerateFunc = func(ctx context.Context, messages []core.Message, onDelta func(string) error) (string, error) {
			prompted = messages
			return "answer", nil
		}

		reply, err := session.Respond(ctx, "肚子痛該怎麼辦？", nil)
		require.NoError(t, err)
		assert.Empty(t, reply.Sources)
		assert.Equal(t, systemPromptPrefix+systemPromptSuffix, prompted[0].Content)
	})

	t.Run("generation failure records inline apology", func(t *testing.T) {
		session, generator := newTestSession(t, nil)
		generator.GenerateFunc = func(ctx context.Context, messages []core.Message, onDelta func(string) error) (string, error) {
			return "", errors.New("rate limited")
		}

		reply, err := session.Respond(ctx, "肚子痛該怎麼辦？", nil)
		require.NoError(t, err)
		assert.Equal(t, "抱歉,發生了一個錯誤: rate limited", reply.Text)
		assert.ErrorContains(t, reply.GenerationErr, "rate limited")

		// History keeps both turns.
		messages := session.Conversation().Messages()
		require.Len(t, messages, 3)
		assert.Equal(t, "抱歉,發生了一個錯誤: rate limited", messages[2].Content)

		// The next turn still works.
		generator.GenerateFunc = nil
		generator.Response = "recovered"
		reply, err = session.Respond(ctx, "還在痛", nil)
		require.NoError(t, err)
		assert.Equal(t, "recovered", reply.Text)
	})

	t.Run("blank input rejected without recording", func(t *testing.T) {
		session, _ := newTestSession(t, nil)

		_, err := session.Respond(ctx, "   ", nil)
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Equal(t, 1, session.Conversation().Len())
	})

	t.Run("retrieval uses the cumulative user query", func(t *testing.T) {
		session, generator := newTestSession(t, map[string]string{"gut": "腸胃相關內容"})
		generator.Response = "answer"

		_, err := session.Respond(ctx, "肚子痛該怎麼辦？", nil)
		require.NoError(t, err)
		reply, err := session.Respond(ctx, "那要吃什麼?", nil)
		require.NoError(t, err)

		// The follow-up alone is vague; retrieval still finds the gut
		// transcript because the query accumulates both user turns.
		require.NotEmpty(t, reply.Sources)
		assert.Equal(t, "gut", reply.Sources[0].DocumentID)
	})
}

func TestSessionReset(t *testing.T) {
	session, _ := newTestSession(t, nil)

	_, err := session.Respond(context.Background(), "問題", nil)
	require.NoError(t, err)
	require.Greater(t, session.Conversation().Len(), 1)

	session.Reset()
	assert.Equal(t, 1, session.Conversation().Len())
	assert.Equal(t, Greeting, session.Conversation().Messages()[0].Content)
}
