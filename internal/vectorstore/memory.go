package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"smartnotex/internal/service"
)

// MemoryStore is an EmbeddingStore backed by a slice, using brute-force
// exact cosine similarity. It serves tests and single-process development
// setups; ranking is exact, so it doubles as the reference for what the
// approximate backend must approximate.
type MemoryStore struct {
	mu  sync.RWMutex
	dim int

	records []memoryRecord
}

type memoryRecord struct {
	rec Record
	vec []float32
}

// NewMemoryStore creates an in-memory store with a fixed vector dimension.
func NewMemoryStore(dim int) (*MemoryStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", service.ErrConfiguration, dim)
	}
	return &MemoryStore{dim: dim}, nil
}

// Dimension returns the fixed vector dimension of this store instance.
func (s *MemoryStore) Dimension() int {
	return s.dim
}

// Store durably (for the process lifetime) writes a record with its vector.
func (s *MemoryStore) Store(ctx context.Context, rec Record, vector []float32) (string, error) {
	if len(vector) != s.dim {
		return "", fmt.Errorf("vector has size %d, store expects %d: %w", len(vector), s.dim, service.ErrDimensionMismatch)
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	s.mu.Lock()
	s.records = append(s.records, memoryRecord{rec: rec, vec: vec})
	s.mu.Unlock()

	return rec.ID, nil
}

// Search returns the records closest to query by exact cosine similarity.
func (s *MemoryStore) Search(ctx context.Context, query []float32, limit int, threshold float32, noteID *int64) ([]Result, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("query vector has size %d, store expects %d: %w", len(query), s.dim, service.ErrDimensionMismatch)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be greater than 0", service.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, 0, limit)
	for _, entry := range s.records {
		if noteID != nil && entry.rec.NoteID != *noteID {
			continue
		}
		sim := cosineSimilarity(query, entry.vec)
		if sim < threshold {
			continue
		}
		results = append(results, Result{
			RecordID:   entry.rec.ID,
			NoteID:     entry.rec.NoteID,
			ChunkIndex: entry.rec.ChunkIndex,
			ChunkText:  entry.rec.ChunkText,
			Similarity: sim,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// DeleteByNote removes all records for a note and returns the count.
func (s *MemoryStore) DeleteByNote(ctx context.Context, noteID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	deleted := 0
	for _, entry := range s.records {
		if entry.rec.NoteID == noteID {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	s.records = kept

	return deleted, nil
}

// cosineSimilarity computes dot(a,b) / (|a| * |b|). Zero vectors yield 0.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
