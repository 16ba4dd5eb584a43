package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"smartnotex/internal/contextutil"
	"smartnotex/internal/storage"
	"smartnotex/internal/vectorstore"
)

// Enqueuer schedules background indexing of a note after a mutation.
type Enqueuer interface {
	Enqueue(noteID int64) bool
}

// NoteHandler provides the thin note CRUD surface that feeds the RAG core.
// Ownership and access checks are the surrounding layer's job; this handler
// only maintains the records and keeps the index in sync.
type NoteHandler struct {
	noteRepo storage.NoteStore
	store    vectorstore.EmbeddingStore
	queue    Enqueuer
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(noteRepo storage.NoteStore, store vectorstore.EmbeddingStore, queue Enqueuer) *NoteHandler {
	return &NoteHandler{
		noteRepo: noteRepo,
		store:    store,
		queue:    queue,
	}
}

// ContentBlock is a content block in a note request or response.
type ContentBlock struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// NoteRequest is the payload for creating or updating a note.
type NoteRequest struct {
	Title    string         `json:"title"`
	Contents []ContentBlock `json:"contents"`
}

// NoteResponse is a note with its content blocks.
type NoteResponse struct {
	ID       int64          `json:"id"`
	Title    string         `json:"title"`
	Contents []ContentBlock `json:"contents"`
}

func (h *NoteHandler) validate(req *NoteRequest) string {
	if strings.TrimSpace(req.Title) == "" {
		return "Title cannot be empty"
	}
	for _, block := range req.Contents {
		if !storage.ContentKind(block.Kind).Valid() {
			return "Unknown content kind: " + block.Kind
		}
	}
	return ""
}

func toContentRecords(blocks []ContentBlock) []storage.ContentRecord {
	records := make([]storage.ContentRecord, 0, len(blocks))
	for _, block := range blocks {
		records = append(records, storage.ContentRecord{
			Kind:    storage.ContentKind(block.Kind),
			Content: block.Content,
		})
	}
	return records
}

// Create handles POST /notes: stores the note and schedules indexing.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := h.validate(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	note := &storage.NoteRecord{Title: strings.TrimSpace(req.Title)}
	if err := h.noteRepo.Create(ctx, note); err != nil {
		logger.ErrorContext(ctx, "failed to create note", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create note")
		return
	}
	if err := h.noteRepo.ReplaceContents(ctx, note.ID, toContentRecords(req.Contents)); err != nil {
		logger.ErrorContext(ctx, "failed to store note contents", "note_id", note.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store note contents")
		return
	}

	// Indexing runs off the request path; the worker logs failures and a
	// later enqueue recovers them.
	if !h.queue.Enqueue(note.ID) {
		logger.WarnContext(ctx, "index queue full, note not scheduled", "note_id", note.ID)
	}

	writeJSON(w, http.StatusCreated, NoteResponse{
		ID:       note.ID,
		Title:    note.Title,
		Contents: req.Contents,
	})
}

// Get handles GET /notes/{noteID}.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	noteID, ok := h.noteIDParam(w, r)
	if !ok {
		return
	}

	note, err := h.noteRepo.Get(ctx, noteID)
	if err != nil {
		h.repoError(w, r, err, "failed to load note")
		return
	}
	blocks, err := h.noteRepo.ListContents(ctx, noteID)
	if err != nil {
		h.repoError(w, r, err, "failed to load note contents")
		return
	}

	contents := make([]ContentBlock, 0, len(blocks))
	for _, block := range blocks {
		contents = append(contents, ContentBlock{
			Kind:    string(block.Kind),
			Content: block.Content,
		})
	}

	writeJSON(w, http.StatusOK, NoteResponse{
		ID:       note.ID,
		Title:    note.Title,
		Contents: contents,
	})
}

// Update handles PUT /notes/{noteID}: replaces title and contents, then
// schedules a re-index.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	noteID, ok := h.noteIDParam(w, r)
	if !ok {
		return
	}

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := h.validate(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	note := &storage.NoteRecord{ID: noteID, Title: strings.TrimSpace(req.Title)}
	if err := h.noteRepo.Update(ctx, note); err != nil {
		h.repoError(w, r, err, "failed to update note")
		return
	}
	if err := h.noteRepo.ReplaceContents(ctx, noteID, toContentRecords(req.Contents)); err != nil {
		logger.ErrorContext(ctx, "failed to replace note contents", "note_id", noteID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store note contents")
		return
	}

	if !h.queue.Enqueue(noteID) {
		logger.WarnContext(ctx, "index queue full, note not scheduled", "note_id", noteID)
	}

	writeJSON(w, http.StatusOK, NoteResponse{
		ID:       noteID,
		Title:    note.Title,
		Contents: req.Contents,
	})
}

// Delete handles DELETE /notes/{noteID}: removes the vector records first,
// then the rows (contents and chunks cascade).
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	noteID, ok := h.noteIDParam(w, r)
	if !ok {
		return
	}

	if _, err := h.store.DeleteByNote(ctx, noteID); err != nil {
		logger.ErrorContext(ctx, "failed to delete note embeddings", "note_id", noteID, "error", err)
		writeError(w, statusForError(err), "Failed to delete note")
		return
	}
	if err := h.noteRepo.Delete(ctx, noteID); err != nil {
		h.repoError(w, r, err, "failed to delete note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NoteHandler) noteIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	noteID, err := strconv.ParseInt(chi.URLParam(r, "noteID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid note id")
		return 0, false
	}
	return noteID, true
}

func (h *NoteHandler) repoError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Note not found")
		return
	}
	contextutil.LoggerFromContext(r.Context()).ErrorContext(r.Context(), msg, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
