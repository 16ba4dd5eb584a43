package storage

import "time"

// ContentKind identifies the type of a content block within a note.
type ContentKind string

const (
	KindText       ContentKind = "text"
	KindImage      ContentKind = "image"
	KindPDF        ContentKind = "pdf"
	KindVideo      ContentKind = "video" // video caption / YouTube link description
	KindWebLink    ContentKind = "web_link"
	KindScreenshot ContentKind = "screenshot"
)

// Indexable reports whether blocks of this kind contribute text to the
// note's searchable corpus. Binary/media kinds are excluded from indexing.
func (k ContentKind) Indexable() bool {
	switch k {
	case KindText, KindWebLink, KindVideo:
		return true
	}
	return false
}

// Valid reports whether k is a known content kind.
func (k ContentKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindPDF, KindVideo, KindWebLink, KindScreenshot:
		return true
	}
	return false
}

// NoteRecord represents a note in the database.
type NoteRecord struct {
	ID        int64
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContentRecord represents a single content block within a note.
// Blocks keep their stored order via Position.
type ContentRecord struct {
	ID        int64
	NoteID    int64
	Kind      ContentKind
	Content   string
	Position  int
	CreatedAt time.Time
}

// ChunkRecord represents an indexed chunk of a note's corpus.
// Its ID doubles as the vector store point ID.
type ChunkRecord struct {
	ID         string // UUID, same as the vector point ID
	NoteID     int64
	ChunkIndex int // Index within note (starts at 0)
	Text       string
	CreatedAt  time.Time
}
