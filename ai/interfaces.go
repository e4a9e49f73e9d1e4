package ai

import (
	"context"

	"github.com/poiesic/recallit/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the identifier of the embedding model in use.
	// Queries against a collection must be embedded with the same model the
	// collection was indexed with; the identifier makes that checkable.
	Model() string
}

// Generator produces an answer from a conversation, streaming incremental
// text deltas through a callback as they arrive.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate produces a completion for the given messages.
	// onDelta, if non-nil, is invoked for each incremental text delta; a
	// non-nil error from the callback cancels generation. The complete
	// response text is returned once generation finishes.
	Generate(ctx context.Context, messages []core.Message, onDelta func(delta string) error) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Generator instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the chat completion service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
