package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"smartnotex/internal/config"
	"smartnotex/internal/http"
	"smartnotex/internal/indexer"
	"smartnotex/internal/llm"
	"smartnotex/internal/rag"
	"smartnotex/internal/storage"
	"smartnotex/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	noteRepo := storage.NewNoteRepo(db)
	chunkRepo := storage.NewChunkRepo(db)

	ctx := context.Background()

	// Initialize Qdrant-backed embedding store and validate the collection's
	// vector size (fail-fast on a model change without re-index).
	store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to create Qdrant store: %v", err)
	}
	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingDim)

	// Validate the embedding backend and its output dimension (fail-fast);
	// there is no degraded mode without embeddings.
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDim)
	if _, err := embedder.EmbedText(ctx, "startup probe"); err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	slog.Info("Embedding client validated", "model", cfg.EmbeddingModelName, "vector_size", cfg.EmbeddingDim)

	chunker, err := indexer.NewChunker(cfg.ChunkMaxSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Invalid chunker configuration: %v", err)
	}

	// Create LLM client (generation backend)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Create RAG engine
	ragEngine := rag.NewEngine(
		noteRepo,
		chunkRepo,
		embedder,
		store,
		llmClient,
		chunker,
		cfg.Threshold,
		cfg.TopK,
	)
	slog.Info("RAG engine initialized", "top_k", cfg.TopK, "threshold", cfg.Threshold)

	// Background index worker: note mutations enqueue here so embedding
	// latency stays off the request path.
	worker := indexer.NewWorker(ragEngine, 256)
	worker.Start(ctx)
	defer worker.Stop()

	deps := &http.Deps{
		RAGEngine: ragEngine,
		NoteRepo:  noteRepo,
		Store:     store,
		Queue:     worker,
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
