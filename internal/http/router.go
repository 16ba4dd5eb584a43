package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"smartnotex/internal/handlers"
	"smartnotex/internal/rag"
	"smartnotex/internal/storage"
	"smartnotex/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	RAGEngine rag.Engine
	NoteRepo  storage.NoteStore
	Store     vectorstore.EmbeddingStore
	Queue     handlers.Enqueuer
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.RAGEngine, deps.NoteRepo)
	indexHandler := handlers.NewIndexHandler(deps.RAGEngine)
	noteHandler := handlers.NewNoteHandler(deps.NoteRepo, deps.Store, deps.Queue)
	healthHandler := handlers.NewHealthHandler()

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodPost, "/ask", askHandler)

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", noteHandler.Create)
			r.Get("/{noteID}", noteHandler.Get)
			r.Put("/{noteID}", noteHandler.Update)
			r.Delete("/{noteID}", noteHandler.Delete)
			r.Method(http.MethodPost, "/{noteID}/index", indexHandler)
		})
	})

	return r
}
