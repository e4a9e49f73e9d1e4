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

package recallit

import (
	"io"
	"log/slog"

	"github.com/poiesic/recallit/ai"
	"github.com/poiesic/recallit/ai/openai"
	"github.com/poiesic/recallit/chat"
	"github.com/poiesic/recallit/ingestion"
	"github.com/poiesic/recallit/reindex"
	"github.com/poiesic/recallit/retrieval"
	"github.com/poiesic/recallit/storage"
	"github.com/poiesic/recallit/storage/badger"
)

// DefaultCollection is the base name indexed transcripts live under.
const DefaultCollection = "transcripts"

// KnowledgeBase bundles the vector index and AI services behind one handle.
type KnowledgeBase struct {
	backend    *badger.Backend
	indexRepo  storage.IndexRepository
	provider   ai.Provider
	collection string
	logger     *slog.Logger
}

// KnowledgeBaseOption configures a KnowledgeBase.
type KnowledgeBaseOption func(*knowledgeBaseOptions)

type knowledgeBaseOptions struct {
	aiConfig   *ai.Config
	provider   ai.Provider
	collection string
}

// WithAIConfig sets the AI service configuration.
func WithAIConfig(config *ai.Config) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) { o.aiConfig = config }
}

// WithProvider injects an AI provider directly, bypassing the OpenAI one.
func WithProvider(provider ai.Provider) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) { o.provider = provider }
}

// WithCollection sets the base collection name.
func WithCollection(base string) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) { o.collection = base }
}

// Open opens a knowledge base at the given path, creating it if needed.
func Open(filePath string, opts ...KnowledgeBaseOption) (*KnowledgeBase, error) {
	options := &knowledgeBaseOptions{
		aiConfig:   ai.DefaultConfig(),
		collection: DefaultCollection,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	indexRepo, err := badger.NewIndexRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			indexRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &KnowledgeBase{
		backend:    backend,
		indexRepo:  indexRepo,
		provider:   provider,
		collection: ingestion.CollectionName(options.collection),
		logger:     slog.Default(),
	}, nil
}

// Close releases every resource held by the knowledge base.
func (kb *KnowledgeBase) Close() error {
	if err := kb.provider.Close(); err != nil {
		kb.logger.Error("error closing AI provider", "err", err)
	}

	if err := kb.indexRepo.Close(); err != nil {
		kb.logger.Error("error closing index repository", "err", err)
		return err
	}

	if err := kb.backend.Close(); err != nil {
		kb.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// IndexRepository exposes the vector index.
func (kb *KnowledgeBase) IndexRepository() storage.IndexRepository {
	return kb.indexRepo
}

// Provider exposes the AI services.
func (kb *KnowledgeBase) Provider() ai.Provider {
	return kb.provider
}

// Collection returns the full collection name, metric suffix included.
func (kb *KnowledgeBase) Collection() string {
	return kb.collection
}

// NewIngestionPipeline creates a pipeline writing to this knowledge base.
func (kb *KnowledgeBase) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(kb.indexRepo, kb.provider.Embedder(), kb.collection, opts...)
}

// NewRetrievalEngine creates a retrieval engine over this knowledge base.
func (kb *KnowledgeBase) NewRetrievalEngine(opts ...retrieval.Option) (*retrieval.Engine, error) {
	return retrieval.NewEngine(kb.indexRepo, kb.provider.Embedder(), opts...)
}

// NewChatSession creates a chat session backed by this knowledge base.
func (kb *KnowledgeBase) NewChatSession(opts ...chat.SessionOption) (*chat.Session, error) {
	engine, err := kb.NewRetrievalEngine()
	if err != nil {
		return nil, err
	}
	return chat.NewSession(engine, kb.provider.Generator(), opts...), nil
}

// NewReindexer creates a reindexer rewriting this knowledge base with the
// provider's current embedding model.
func (kb *KnowledgeBase) NewReindexer(config *reindex.Config, progress io.Writer) *reindex.Reindexer {
	return reindex.NewReindexer(kb.indexRepo, kb.provider.Embedder(), config, progress)
}
