package vectorstore

import "context"

// Record is an embedding record to persist: one chunk of one note.
type Record struct {
	// ID is the record id (UUID). When empty, the store generates one.
	ID string
	// NoteID is a foreign reference to the owning note.
	NoteID int64
	// ChunkIndex is the chunk's position within the note's corpus.
	ChunkIndex int
	// ChunkText is the chunk's text content.
	ChunkText string
}

// Result is a transient similarity search hit.
type Result struct {
	RecordID   string
	NoteID     int64
	ChunkIndex int
	ChunkText  string
	// Similarity is cosine similarity, approximately [0,1], higher = closer.
	Similarity float32
}

// EmbeddingStore persists embedding records and answers nearest-neighbor
// queries over them. It owns the records exclusively: they are created by
// indexing, read by search, and deleted per note before a re-index.
type EmbeddingStore interface {
	// Store durably writes a record with its vector and returns the record id.
	// Fails with service.ErrDimensionMismatch when len(vector) differs from
	// the store's configured dimension.
	Store(ctx context.Context, rec Record, vector []float32) (string, error)

	// Search returns at most limit results ordered by descending similarity,
	// all with similarity >= threshold. A non-nil noteID restricts the search
	// to that note's records. An empty result is valid, not an error.
	Search(ctx context.Context, query []float32, limit int, threshold float32, noteID *int64) ([]Result, error)

	// DeleteByNote removes all records for a note and returns the count.
	// Idempotent: a note with zero records yields 0, not an error.
	DeleteByNote(ctx context.Context, noteID int64) (int, error)

	// Dimension returns the fixed vector dimension of this store instance.
	Dimension() int
}
