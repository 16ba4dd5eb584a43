package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks smartnotex/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// Insert inserts a single chunk into the database.
	// The chunk.ID must be set (UUID) before calling this method.
	Insert(ctx context.Context, chunk *ChunkRecord) error
	// DeleteByNote deletes all chunks for a given note ID and returns the
	// number of deleted rows. Deleting a note with zero chunks returns 0.
	DeleteByNote(ctx context.Context, noteID int64) (int, error)
	// ListByNote returns all chunks for a given note, ordered by chunk_index.
	ListByNote(ctx context.Context, noteID int64) ([]ChunkRecord, error)
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Insert inserts a single chunk into the database.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chunks (id, note_id, chunk_index, text) VALUES (?, ?, ?, ?)",
		chunk.ID, chunk.NoteID, chunk.ChunkIndex, chunk.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// DeleteByNote deletes all chunks for a given note ID.
// Used when re-indexing a note to remove old chunks before inserting new ones.
func (r *ChunkRepo) DeleteByNote(ctx context.Context, noteID int64) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE note_id = ?", noteID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks by note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

// ListByNote returns all chunks for a given note, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
func (r *ChunkRepo) ListByNote(ctx context.Context, noteID int64) ([]ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, note_id, chunk_index, text, created_at FROM chunks WHERE note_id = ? ORDER BY chunk_index",
		noteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []ChunkRecord
	for rows.Next() {
		var chunk ChunkRecord
		var createdAt string
		if err := rows.Scan(&chunk.ID, &chunk.NoteID, &chunk.ChunkIndex, &chunk.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.CreatedAt = parseSQLiteTime(createdAt)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	var chunk ChunkRecord
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, note_id, chunk_index, text, created_at FROM chunks WHERE id = ?",
		id,
	).Scan(&chunk.ID, &chunk.NoteID, &chunk.ChunkIndex, &chunk.Text, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}

	chunk.CreatedAt = parseSQLiteTime(createdAt)
	return &chunk, nil
}
