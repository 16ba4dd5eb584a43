package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"smartnotex/internal/contextutil"
	"smartnotex/internal/indexer"
	"smartnotex/internal/llm"
	"smartnotex/internal/service"
	"smartnotex/internal/storage"
	"smartnotex/internal/vectorstore"
)

const (
	defaultTopK = 5
	maxTopK     = 20

	// noInfoAnswer is returned when retrieval finds nothing above the
	// threshold. It distinguishes "confidently nothing relevant" from
	// "failed to determine" - the latter is always an error.
	noInfoAnswer = "I couldn't find any relevant information in your notes to answer this question."
)

// Embedder maps text to fixed-dimension vectors. Defined here consumer-first;
// llm.EmbeddingsClient is the one concrete implementation, selected at
// configuration time.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Generator produces an answer from structured chat messages.
type Generator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Engine provides the RAG pipeline: indexing notes into the embedding store
// and answering questions grounded in retrieved chunks.
type Engine interface {
	// IndexNote (re-)indexes a note and returns the number of chunks stored.
	// Idempotent: prior records for the note are deleted first, so a retry
	// after a failure recovers fully. Callers must not run two IndexNote
	// calls for the same note concurrently.
	IndexNote(ctx context.Context, noteID int64) (int, error)

	// Ask answers a question using only the user's indexed notes.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// ragEngine implements the Engine interface. It is stateless between calls;
// every operation is a self-contained transaction against the stores.
type ragEngine struct {
	noteRepo  storage.NoteStore
	chunkRepo storage.ChunkStore
	embedder  Embedder
	store     vectorstore.EmbeddingStore
	generator Generator
	chunker   *indexer.Chunker
	threshold float32
	topK      int
}

// NewEngine creates a new RAG engine. threshold and topK are the defaults
// applied when a request doesn't specify its own.
func NewEngine(
	noteRepo storage.NoteStore,
	chunkRepo storage.ChunkStore,
	embedder Embedder,
	store vectorstore.EmbeddingStore,
	generator Generator,
	chunker *indexer.Chunker,
	threshold float32,
	topK int,
) Engine {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &ragEngine{
		noteRepo:  noteRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		store:     store,
		generator: generator,
		chunker:   chunker,
		threshold: threshold,
		topK:      topK,
	}
}

// IndexNote rebuilds a note's embedding records from its current content.
func (e *ragEngine) IndexNote(ctx context.Context, noteID int64) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	note, err := e.noteRepo.Get(ctx, noteID)
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, fmt.Errorf("note %d: %w", noteID, service.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to load note %d: %w", noteID, err)
	}

	blocks, err := e.noteRepo.ListContents(ctx, noteID)
	if err != nil {
		return 0, fmt.Errorf("failed to load note contents: %w", err)
	}

	// Delete the prior generation first so a re-index replaces, never appends.
	deletedVectors, err := e.store.DeleteByNote(ctx, noteID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old embeddings: %w", err)
	}
	deletedChunks, err := e.chunkRepo.DeleteByNote(ctx, noteID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old chunks: %w", err)
	}
	if deletedVectors > 0 || deletedChunks > 0 {
		logger.DebugContext(ctx, "removed previous index generation",
			"note_id", noteID, "vectors", deletedVectors, "chunks", deletedChunks)
	}

	corpus := indexer.BuildCorpus(note.Title, blocks)
	if strings.TrimSpace(corpus) == "" {
		logger.InfoContext(ctx, "note has no indexable content", "note_id", noteID)
		return 0, nil
	}

	chunks := e.chunker.Split(corpus)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := e.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i, chunk := range chunks {
		id := uuid.New().String()

		record := &storage.ChunkRecord{
			ID:         id,
			NoteID:     noteID,
			ChunkIndex: i,
			Text:       chunk,
		}
		if err := e.chunkRepo.Insert(ctx, record); err != nil {
			return 0, fmt.Errorf("failed to store chunk %d: %w", i, err)
		}

		_, err := e.store.Store(ctx, vectorstore.Record{
			ID:         id,
			NoteID:     noteID,
			ChunkIndex: i,
			ChunkText:  chunk,
		}, vectors[i])
		if err != nil {
			return 0, fmt.Errorf("failed to store embedding %d: %w", i, err)
		}
	}

	logger.InfoContext(ctx, "note indexed", "note_id", noteID, "chunks", len(chunks))
	return len(chunks), nil
}

// Ask runs the retrieve-then-generate pipeline for one question.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AskResponse{}, fmt.Errorf("%w: question cannot be empty", service.ErrInvalidInput)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = e.topK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	threshold := e.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	logger.InfoContext(ctx, "RAG query started",
		"question_length", len(question), "top_k", topK, "threshold", threshold, "scoped", req.NoteID != nil)

	embeddings, err := e.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return AskResponse{}, fmt.Errorf("failed to embed question: %w", err)
	}
	queryVector := embeddings[0]

	results, err := e.store.Search(ctx, queryVector, topK, threshold, req.NoteID)
	if err != nil {
		return AskResponse{}, fmt.Errorf("failed to search embeddings: %w", err)
	}

	if len(results) == 0 {
		// Normal outcome, not an error: nothing cleared the threshold.
		logger.InfoContext(ctx, "no chunks above threshold", "threshold", threshold)
		return AskResponse{
			Answer:  noInfoAnswer,
			Sources: []Source{},
		}, nil
	}

	contexts := make([]string, len(results))
	sources := make([]Source, len(results))
	for i, result := range results {
		contexts[i] = result.ChunkText
		sources[i] = Source{
			NoteID:     result.NoteID,
			ChunkText:  result.ChunkText,
			ChunkIndex: result.ChunkIndex,
			Similarity: result.Similarity,
		}
	}

	answer, err := e.generator.ChatWithMessages(ctx, buildMessages(question, contexts), llm.ChatParams{
		MaxTokens:   512,
		Temperature: 0.4,
	})
	if err != nil {
		return AskResponse{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	logger.InfoContext(ctx, "RAG query completed", "chunks_used", len(contexts), "answer_length", len(answer))

	return AskResponse{
		Answer:  strings.TrimSpace(answer),
		Sources: sources,
	}, nil
}

const systemPrompt = "You are a study assistant for a student's personal notes. " +
	"Answer the question using ONLY the numbered contexts below, which come from the student's own notes. " +
	"Explain clearly and concisely. " +
	"If the contexts do not contain the answer, say you are not sure instead of guessing."

// buildMessages builds the grounded prompt: enumerated contexts, most
// relevant first, followed by the question.
func buildMessages(question string, contexts []string) []llm.Message {
	var b strings.Builder
	b.WriteString("Contexts:\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "[Context %d] %s\n\n", i+1, c)
	}
	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)

	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}
