package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"smartnotex/internal/contextutil"
	"smartnotex/internal/rag"
)

// IndexHandler triggers a synchronous re-index of one note.
type IndexHandler struct {
	engine rag.Engine
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(engine rag.Engine) *IndexHandler {
	return &IndexHandler{engine: engine}
}

// IndexResponse reports the outcome of an index operation.
type IndexResponse struct {
	NoteID        int64 `json:"note_id"`
	ChunksIndexed int   `json:"chunks_indexed"`
}

// ServeHTTP re-indexes the note named in the URL. The operation is
// idempotent, so a failed request is safe to retry.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	noteID, err := strconv.ParseInt(chi.URLParam(r, "noteID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid note id")
		return
	}

	count, err := h.engine.IndexNote(ctx, noteID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to index note", "note_id", noteID, "error", err)
		writeError(w, statusForError(err), "Failed to index note")
		return
	}

	writeJSON(w, http.StatusCreated, IndexResponse{
		NoteID:        noteID,
		ChunksIndexed: count,
	})
}
