package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"smartnotex/internal/rag"
)

// fakeEngine is a canned rag.Engine for handler tests.
type fakeEngine struct {
	askResp  rag.AskResponse
	askErr   error
	lastAsk  rag.AskRequest
	askCalls int

	indexCount  int
	indexErr    error
	lastIndexed int64
}

func (f *fakeEngine) Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error) {
	f.askCalls++
	f.lastAsk = req
	if f.askErr != nil {
		return rag.AskResponse{}, f.askErr
	}
	return f.askResp, nil
}

func (f *fakeEngine) IndexNote(ctx context.Context, noteID int64) (int, error) {
	f.lastIndexed = noteID
	if f.indexErr != nil {
		return 0, f.indexErr
	}
	return f.indexCount, nil
}

// fakeQueue records enqueued note IDs.
type fakeQueue struct {
	ids  []int64
	full bool
}

func (f *fakeQueue) Enqueue(noteID int64) bool {
	if f.full {
		return false
	}
	f.ids = append(f.ids, noteID)
	return true
}

// doJSON performs a request with a JSON body against a handler func mounted
// under a chi route, so URL params resolve.
func doJSON(t *testing.T, method, pattern, target, body string, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.MethodFunc(method, pattern, handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return out
}
