package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"smartnotex/internal/contextutil"
	"smartnotex/internal/service"
)

// Payload field names for points in the chunk collection.
const (
	payloadNoteID     = "note_id"
	payloadChunkIndex = "chunk_index"
	payloadChunkText  = "chunk_text"
)

// QdrantStore implements EmbeddingStore using Qdrant with cosine distance.
// Qdrant's HNSW index gives approximate nearest-neighbor search; at the API
// level the ranking is consistent with exact cosine ranking within the
// precision the threshold comparison needs.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dim        int
}

// NewQdrantStore creates a new Qdrant-backed embedding store.
// urlStr should be in the format "http://host:port" (e.g. "http://localhost:6333");
// the gRPC port is derived from the HTTP port.
func NewQdrantStore(urlStr, collection string, dim int) (*QdrantStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", service.ErrConfiguration, dim)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	// gRPC port is conventionally the HTTP port + 1 (6333 -> 6334).
	port := 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: collection,
		dim:        dim,
	}, nil
}

// Dimension returns the fixed vector dimension of this store instance.
func (s *QdrantStore) Dimension() int {
	return s.dim
}

// EnsureCollection ensures the collection exists with the configured vector
// size and cosine distance. An existing collection with a different size is
// a model-change-without-reindex bug and fails fast.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %v: %w", err, service.ErrDependencyUnavailable)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", s.dim)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParams()
	if params == nil {
		return fmt.Errorf("collection vector params are invalid")
	}

	if int(params.Size) != s.dim {
		return fmt.Errorf("collection vector size is %d, expected %d: %w", params.Size, s.dim, service.ErrDimensionMismatch)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", s.dim)
	return nil
}

// Store upserts a single point carrying the chunk text and note reference as
// payload. The write is rejected on dimension mismatch, never padded.
func (s *QdrantStore) Store(ctx context.Context, rec Record, vector []float32) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(vector) != s.dim {
		return "", fmt.Errorf("vector has size %d, store expects %d: %w", len(vector), s.dim, service.ErrDimensionMismatch)
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(rec.ID),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			payloadNoteID:     rec.NoteID,
			payloadChunkIndex: rec.ChunkIndex,
			payloadChunkText:  rec.ChunkText,
		}),
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert point", "collection", s.collection, "note_id", rec.NoteID, "error", err)
		return "", fmt.Errorf("failed to upsert point: %v: %w", err, service.ErrDependencyUnavailable)
	}

	return rec.ID, nil
}

// Search performs a similarity search with a score threshold and an optional
// single-note scope.
func (s *QdrantStore) Search(ctx context.Context, query []float32, limit int, threshold float32, noteID *int64) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(query) != s.dim {
		return nil, fmt.Errorf("query vector has size %d, store expects %d: %w", len(query), s.dim, service.ErrDimensionMismatch)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be greater than 0", service.ErrInvalidInput)
	}

	limitU := uint64(limit)
	queryReq := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limitU,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if noteID != nil {
		queryReq.Filter = noteFilter(*noteID)
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to search points: %v: %w", err, service.ErrDependencyUnavailable)
	}

	results := make([]Result, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		result := Result{
			Similarity: point.Score,
		}
		if point.Id != nil {
			result.RecordID = point.Id.GetUuid()
		}
		for key, value := range point.Payload {
			if value == nil {
				continue
			}
			switch key {
			case payloadNoteID:
				result.NoteID = value.GetIntegerValue()
			case payloadChunkIndex:
				result.ChunkIndex = int(value.GetIntegerValue())
			case payloadChunkText:
				result.ChunkText = value.GetStringValue()
			}
		}
		results = append(results, result)
	}

	logger.DebugContext(ctx, "search completed", "collection", s.collection, "limit", limit, "threshold", threshold, "results", len(results))
	return results, nil
}

// DeleteByNote removes all points referencing the note and returns the count
// of removed points. Idempotent for notes with no points.
func (s *QdrantStore) DeleteByNote(ctx context.Context, noteID int64) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	filter := noteFilter(noteID)

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %v: %w", err, service.ErrDependencyUnavailable)
	}
	if count == 0 {
		return 0, nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", s.collection, "note_id", noteID, "error", err)
		return 0, fmt.Errorf("failed to delete points: %v: %w", err, service.ErrDependencyUnavailable)
	}

	logger.InfoContext(ctx, "deleted points", "collection", s.collection, "note_id", noteID, "count", count)
	return int(count), nil
}

// noteFilter builds the payload filter scoping an operation to one note.
func noteFilter(noteID int64) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchInt(payloadNoteID, noteID),
		},
	}
}
