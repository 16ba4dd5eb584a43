package vectorstore

import (
	"errors"
	"testing"

	"smartnotex/internal/service"
)

func TestNewQdrantStoreValidation(t *testing.T) {
	if _, err := NewQdrantStore("http://localhost:6333", "note_chunks", 0); !errors.Is(err, service.ErrConfiguration) {
		t.Errorf("zero dimension: error = %v, want ErrConfiguration", err)
	}
	if _, err := NewQdrantStore("http://[::1", "note_chunks", 384); err == nil {
		t.Error("malformed URL accepted")
	}
}

func TestNewQdrantStoreDimension(t *testing.T) {
	s, err := NewQdrantStore("http://localhost:6333", "note_chunks", 384)
	if err != nil {
		t.Fatal(err)
	}
	if s.Dimension() != 384 {
		t.Errorf("Dimension() = %d, want 384", s.Dimension())
	}
}
