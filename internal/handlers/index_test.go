package handlers

import (
	"net/http"
	"testing"

	"smartnotex/internal/service"
)

func TestIndexHandler(t *testing.T) {
	engine := &fakeEngine{indexCount: 4}
	h := NewIndexHandler(engine)

	rec := doJSON(t, "POST", "/notes/{noteID}/index", "/notes/12/index", "", h.ServeHTTP)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[IndexResponse](t, rec)
	if resp.NoteID != 12 || resp.ChunksIndexed != 4 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if engine.lastIndexed != 12 {
		t.Errorf("indexed note %d, want 12", engine.lastIndexed)
	}
}

func TestIndexHandlerZeroChunks(t *testing.T) {
	h := NewIndexHandler(&fakeEngine{indexCount: 0})

	rec := doJSON(t, "POST", "/notes/{noteID}/index", "/notes/12/index", "", h.ServeHTTP)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[IndexResponse](t, rec)
	if resp.ChunksIndexed != 0 {
		t.Errorf("ChunksIndexed = %d, want 0", resp.ChunksIndexed)
	}
}

func TestIndexHandlerBadID(t *testing.T) {
	engine := &fakeEngine{}
	h := NewIndexHandler(engine)

	rec := doJSON(t, "POST", "/notes/{noteID}/index", "/notes/nope/index", "", h.ServeHTTP)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIndexHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "note missing", err: service.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "embedder down", err: service.ErrDependencyUnavailable, wantStatus: http.StatusBadGateway},
		{name: "dimension mismatch", err: service.ErrDimensionMismatch, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewIndexHandler(&fakeEngine{indexErr: tt.err})
			rec := doJSON(t, "POST", "/notes/{noteID}/index", "/notes/1/index", "", h.ServeHTTP)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
