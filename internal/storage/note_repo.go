package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_note_store.go -package=mocks smartnotex/internal/storage NoteStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// NoteStore defines the interface for note storage operations.
// It is the narrow boundary through which the RAG core reads note text;
// ownership and access checks happen in the layer above.
type NoteStore interface {
	// Create inserts a new note and fills in its generated ID.
	Create(ctx context.Context, note *NoteRecord) error
	// Get returns a note by ID. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id int64) (*NoteRecord, error)
	// Update updates a note's title and bumps updated_at.
	// Returns ErrNotFound if the note doesn't exist.
	Update(ctx context.Context, note *NoteRecord) error
	// Delete removes a note. Content blocks and chunks cascade.
	// Returns ErrNotFound if the note doesn't exist.
	Delete(ctx context.Context, id int64) error
	// ReplaceContents replaces all content blocks of a note with the given
	// blocks, assigning positions in slice order.
	ReplaceContents(ctx context.Context, noteID int64, blocks []ContentRecord) error
	// ListContents returns a note's content blocks ordered by position.
	ListContents(ctx context.Context, noteID int64) ([]ContentRecord, error)
}

// NoteRepo provides methods for note operations.
// It implements the NoteStore interface.
type NoteRepo struct {
	db *sql.DB
}

// NewNoteRepo creates a new NoteRepo.
func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

// Create inserts a new note and fills in its generated ID.
func (r *NoteRepo) Create(ctx context.Context, note *NoteRecord) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notes (title) VALUES (?)",
		note.Title,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read note id: %w", err)
	}
	note.ID = id
	return nil
}

// Get returns a note by ID. Returns ErrNotFound if it doesn't exist.
func (r *NoteRepo) Get(ctx context.Context, id int64) (*NoteRecord, error) {
	var note NoteRecord
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, created_at, updated_at FROM notes WHERE id = ?",
		id,
	).Scan(&note.ID, &note.Title, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query note: %w", err)
	}

	note.CreatedAt = parseSQLiteTime(createdAt)
	note.UpdatedAt = parseSQLiteTime(updatedAt)
	return &note, nil
}

// Update updates a note's title and bumps updated_at.
func (r *NoteRepo) Update(ctx context.Context, note *NoteRecord) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notes SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		note.Title, note.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a note. Content blocks and chunks cascade via foreign keys.
func (r *NoteRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceContents replaces all content blocks of a note in a single transaction.
// Positions are assigned in slice order so the stored order is deterministic.
func (r *NoteRepo) ReplaceContents(ctx context.Context, noteID int64, blocks []ContentRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM note_contents WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("failed to delete old contents: %w", err)
	}

	for i, block := range blocks {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO note_contents (note_id, kind, content, position) VALUES (?, ?, ?, ?)",
			noteID, string(block.Kind), block.Content, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert content block %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contents: %w", err)
	}
	return nil
}

// ListContents returns a note's content blocks ordered by position.
// Returns an empty slice if the note has no contents (not an error).
func (r *NoteRepo) ListContents(ctx context.Context, noteID int64) ([]ContentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, note_id, kind, content, position, created_at FROM note_contents WHERE note_id = ? ORDER BY position",
		noteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query contents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var blocks []ContentRecord
	for rows.Next() {
		var block ContentRecord
		var kind, createdAt string
		if err := rows.Scan(&block.ID, &block.NoteID, &kind, &block.Content, &block.Position, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan content block: %w", err)
		}
		block.Kind = ContentKind(kind)
		block.CreatedAt = parseSQLiteTime(createdAt)
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return blocks, nil
}

// parseSQLiteTime parses the DATETIME strings SQLite produces for
// CURRENT_TIMESTAMP columns. Falls back to RFC3339 for driver-formatted values.
func parseSQLiteTime(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
