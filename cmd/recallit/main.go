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

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/recallit"
	"github.com/poiesic/recallit/ai"
	"github.com/poiesic/recallit/ingestion"
	"github.com/poiesic/recallit/reindex"
	"github.com/poiesic/recallit/retrieval"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

func main() {
	// A .env beside the binary may carry OPENAI_API_KEY; absence is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "recallit",
		Usage: "Transcript retrieval and consultation over a local vector index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Chunk, embed and index a directory of transcripts",
				Action: ingestCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "corpus",
						Usage: "Directory of .txt / .json transcript files",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-embed documents that are already indexed",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of documents processed concurrently",
						Value: ingestion.DefaultPoolSize,
					},
				),
			},
			{
				Name:      "query",
				Usage:     "Retrieve the transcript chunks most similar to a question",
				ArgsUsage: "<question>",
				Action:    queryCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks to retrieve",
						Value:   retrieval.DefaultK,
					},
				),
			},
			{
				Name:   "chat",
				Usage:  "Interactive consultation over the indexed transcripts",
				Action: chatCommand,
				Flags:  commonFlags(),
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every indexed chunk with a new embedding model",
				Action: reindexCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of entries to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N entries",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Show collection metadata and index counts",
				Action: statsCommand,
				Flags:  commonFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commonFlags are shared by every subcommand that opens the index.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB index directory",
		},
		&cli.StringFlag{
			Name:  "collection",
			Usage: "Base collection name",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
		},
		&cli.StringFlag{
			Name:  "chat-host",
			Usage: "Chat completion service host URL",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name",
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// openKnowledgeBase resolves flags against the optional config file and
// opens the index.
func openKnowledgeBase(c *cli.Context) (*recallit.KnowledgeBase, error) {
	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	dbPath := orDefault(c.String("db"), cfg.DB)
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required (--db or config file)")
	}

	defaults := ai.DefaultConfig()
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(orDefault(c.String("embedding-host"), cfg.EmbeddingHost, defaults.EmbeddingHost)),
		ai.WithChatHost(orDefault(c.String("chat-host"), cfg.ChatHost, defaults.ChatHost)),
		ai.WithEmbeddingModel(orDefault(c.String("embedding-model"), cfg.EmbeddingModel, defaults.EmbeddingModel)),
		ai.WithChatModel(orDefault(c.String("chat-model"), cfg.ChatModel, defaults.ChatModel)),
		ai.WithToken(orDefault(os.Getenv("OPENAI_API_KEY"), defaults.Token)),
	)

	collection := orDefault(c.String("collection"), cfg.Collection, recallit.DefaultCollection)

	return recallit.Open(dbPath,
		recallit.WithAIConfig(aiConfig),
		recallit.WithCollection(collection),
	)
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	corpusDir := orDefault(c.String("corpus"), cfg.Corpus)
	if corpusDir == "" {
		return fmt.Errorf("corpus directory is required (--corpus or config file)")
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	docs, err := ingestion.LoadCorpus(corpusDir)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	if len(docs) == 0 {
		fmt.Fprintf(os.Stderr, "No transcripts found in %s\n", corpusDir)
		return nil
	}

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetDescription("indexing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	pipeline, err := kb.NewIngestionPipeline(
		ingestion.WithForce(c.Bool("force")),
		ingestion.WithPoolSize(c.Int("pool-size")),
		ingestion.WithOnResult(func(ingestion.Result) {
			_ = bar.Add(1)
		}),
	)
	if err != nil {
		return err
	}

	results, err := pipeline.IngestAll(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	_ = bar.Finish()

	stored, skipped, failed := 0, 0, 0
	for _, result := range results {
		switch result.State {
		case ingestion.StateStored:
			stored++
		case ingestion.StateSkipped:
			skipped++
		case ingestion.StateFailed:
			failed++
			fmt.Fprintf(os.Stderr, "failed: %s: %v\n", result.DocumentID, result.Err)
		}
	}

	fmt.Fprintf(os.Stderr, "Ingested %d documents (%d stored, %d skipped, %d failed)\n",
		len(results), stored, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d documents failed", failed)
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	ctx := context.Background()

	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	engine, err := kb.NewRetrievalEngine(retrieval.WithK(c.Int("top-k")))
	if err != nil {
		return err
	}

	chunks, err := engine.Retrieve(ctx, question)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	if len(chunks) == 0 {
		fmt.Println("No matching transcripts found.")
		return nil
	}

	for i, chunk := range chunks {
		fmt.Printf("%d. [%s] (distance %.4f)\n%s\n\n", i+1, chunk.DocumentID, chunk.Distance, chunk.Text)
	}
	return nil
}

func chatCommand(c *cli.Context) error {
	ctx := context.Background()

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	session, err := kb.NewChatSession()
	if err != nil {
		return err
	}

	fmt.Println(session.Conversation().Messages()[0].Content)
	fmt.Println(`(輸入 "exit" 離開, "/reset" 清除對話歷史)`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "":
			continue
		case "exit", "quit":
			return scanner.Err()
		case "/reset":
			session.Reset()
			fmt.Println(session.Conversation().Messages()[0].Content)
			continue
		}

		reply, err := session.Respond(ctx, input, func(delta string) error {
			fmt.Print(delta)
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Println()

		if len(reply.Sources) > 0 {
			fmt.Println("相關影片:")
			for i, source := range reply.Sources {
				fmt.Printf("%d. %s (distance %.4f)\n", i+1, source.DocumentID, source.Distance)
			}
		}
		fmt.Println()
	}
	return scanner.Err()
}

func reindexCommand(c *cli.Context) error {
	ctx := context.Background()

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	reindexConfig := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if reindexConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reindexConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reindexConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reindexer := kb.NewReindexer(reindexConfig, os.Stderr)
	if err := reindexer.Run(ctx); err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	repo := kb.IndexRepository()

	info, err := repo.Collection(ctx)
	if err != nil {
		fmt.Println("Index is empty (no collection metadata).")
		return nil
	}

	docs, err := repo.ListDocuments(ctx)
	if err != nil {
		return err
	}
	entries, err := repo.CountEntries(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Collection:      %s\n", info.Name)
	fmt.Printf("Metric:          %s\n", info.Metric)
	fmt.Printf("Embedding model: %s\n", info.EmbeddingModel)
	fmt.Printf("Dimension:       %d\n", info.Dimension)
	fmt.Printf("Created:         %s\n", info.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Documents:       %d\n", len(docs))
	fmt.Printf("Entries:         %d\n", entries)
	return nil
}
