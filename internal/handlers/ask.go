package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"smartnotex/internal/contextutil"
	"smartnotex/internal/rag"
	"smartnotex/internal/storage"
)

// AskHandler handles RAG query requests.
type AskHandler struct {
	engine   rag.Engine
	noteRepo storage.NoteStore
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine rag.Engine, noteRepo storage.NoteStore) *AskHandler {
	return &AskHandler{
		engine:   engine,
		noteRepo: noteRepo,
	}
}

// AskRequest represents the HTTP request payload for RAG queries.
// This mirrors rag.AskRequest but is defined here for HTTP layer separation.
type AskRequest struct {
	Question  string   `json:"question"`
	NoteID    *int64   `json:"note_id,omitempty"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float32 `json:"threshold,omitempty"`
}

// AskResponse represents the HTTP response payload for RAG queries.
type AskResponse struct {
	Answer  string           `json:"answer"`
	Sources []SourceResponse `json:"sources"`
}

// SourceResponse represents a cited source chunk in the HTTP response.
type SourceResponse struct {
	NoteID     int64   `json:"note_id"`
	ChunkText  string  `json:"chunk_text"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float32 `json:"similarity"`
}

// ServeHTTP answers a question grounded in the caller's indexed notes.
// Access to the scoped note must already be verified by the caller's layer;
// existence is still checked so an unknown note id yields 404, not an empty
// search.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question cannot be empty")
		return
	}
	if req.Threshold != nil && (*req.Threshold < 0 || *req.Threshold > 1) {
		writeError(w, http.StatusBadRequest, "Threshold must be in [0, 1]")
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, "top_k must not be negative")
		return
	}

	if req.NoteID != nil {
		if _, err := h.noteRepo.Get(ctx, *req.NoteID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Note not found")
				return
			}
			logger.ErrorContext(ctx, "failed to load note", "note_id", *req.NoteID, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	resp, err := h.engine.Ask(ctx, rag.AskRequest{
		Question:  req.Question,
		NoteID:    req.NoteID,
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
	if err != nil {
		logger.ErrorContext(ctx, "RAG query failed", "error", err)
		writeError(w, statusForError(err), "Failed to answer question")
		return
	}

	sources := make([]SourceResponse, 0, len(resp.Sources))
	for _, s := range resp.Sources {
		sources = append(sources, SourceResponse{
			NoteID:     s.NoteID,
			ChunkText:  s.ChunkText,
			ChunkIndex: s.ChunkIndex,
			Similarity: s.Similarity,
		})
	}

	writeJSON(w, http.StatusOK, AskResponse{
		Answer:  resp.Answer,
		Sources: sources,
	})
}
