package rag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"smartnotex/internal/indexer"
	"smartnotex/internal/llm"
	"smartnotex/internal/service"
	"smartnotex/internal/storage"
	"smartnotex/internal/vectorstore"
)

// keywordEmbedder is a deterministic 3-dimensional embedder: each axis fires
// when the text mentions its keyword. Texts sharing a keyword come out
// similar under cosine, which is all retrieval tests need.
type keywordEmbedder struct {
	err   error
	calls int
}

var keywords = []string{"alpha", "beta", "gamma"}

func (e *keywordEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 3)
		for j, kw := range keywords {
			if strings.Contains(strings.ToLower(text), kw) {
				vec[j] = 1
			}
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (e *keywordEmbedder) Dimension() int { return 3 }

type fakeGenerator struct {
	reply        string
	err          error
	calls        int
	lastMessages []llm.Message
}

func (g *fakeGenerator) ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
	g.calls++
	g.lastMessages = messages
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

type engineFixture struct {
	engine    Engine
	noteRepo  *storage.NoteRepo
	chunkRepo *storage.ChunkRepo
	store     *vectorstore.MemoryStore
	embedder  *keywordEmbedder
	generator *fakeGenerator
}

func newEngineFixture(t *testing.T, maxSize, overlap int) *engineFixture {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	store, err := vectorstore.NewMemoryStore(3)
	if err != nil {
		t.Fatal(err)
	}
	chunker, err := indexer.NewChunker(maxSize, overlap)
	if err != nil {
		t.Fatal(err)
	}

	f := &engineFixture{
		noteRepo:  storage.NewNoteRepo(db),
		chunkRepo: storage.NewChunkRepo(db),
		store:     store,
		embedder:  &keywordEmbedder{},
		generator: &fakeGenerator{reply: "generated answer"},
	}
	f.engine = NewEngine(f.noteRepo, f.chunkRepo, f.embedder, f.store, f.generator, chunker, 0.5, 5)
	return f
}

func (f *engineFixture) addNote(t *testing.T, title string, blocks ...storage.ContentRecord) int64 {
	t.Helper()
	note := &storage.NoteRecord{Title: title}
	if err := f.noteRepo.Create(context.Background(), note); err != nil {
		t.Fatal(err)
	}
	if len(blocks) > 0 {
		if err := f.noteRepo.ReplaceContents(context.Background(), note.ID, blocks); err != nil {
			t.Fatal(err)
		}
	}
	return note.ID
}

func TestIndexNoteMissing(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)

	_, err := f.engine.IndexNote(context.Background(), 9999)
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestIndexNoteEmptyCorpus(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)
	id := f.addNote(t, "   ")

	count, err := f.engine.IndexNote(context.Background(), id)
	if err != nil {
		t.Fatalf("IndexNote: %v", err)
	}
	if count != 0 {
		t.Errorf("indexed %d chunks for an empty note, want 0", count)
	}
	if f.embedder.calls != 0 {
		t.Errorf("embedder called %d times for an empty corpus, want 0", f.embedder.calls)
	}
}

func TestIndexNoteStoresChunksAndVectors(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)
	ctx := context.Background()

	id := f.addNote(t, "Alpha Notes",
		storage.ContentRecord{Kind: storage.KindText, Content: "The alpha particle carries two protons."},
	)

	count, err := f.engine.IndexNote(ctx, id)
	if err != nil {
		t.Fatalf("IndexNote: %v", err)
	}
	if count != 1 {
		t.Fatalf("indexed %d chunks, want 1", count)
	}

	chunks, err := f.chunkRepo.ListByNote(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunk table holds %d rows, want 1", len(chunks))
	}
	if chunks[0].ChunkIndex != 0 || !strings.Contains(chunks[0].Text, "alpha particle") {
		t.Errorf("unexpected chunk: %+v", chunks[0])
	}

	// The vector record carries the same ID and text as the chunk row.
	results, err := f.store.Search(ctx, []float32{1, 0, 0}, 10, 0.5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("store holds %d matching vectors, want 1", len(results))
	}
	if results[0].RecordID != chunks[0].ID {
		t.Errorf("vector ID %q != chunk ID %q", results[0].RecordID, chunks[0].ID)
	}
	if results[0].ChunkText != chunks[0].Text {
		t.Errorf("vector payload text diverges from chunk row")
	}
}

func TestIndexNoteReplacesPreviousGeneration(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)
	ctx := context.Background()

	id := f.addNote(t, "Changing",
		storage.ContentRecord{Kind: storage.KindText, Content: "alpha content here"},
	)
	if _, err := f.engine.IndexNote(ctx, id); err != nil {
		t.Fatal(err)
	}

	// Rewrite the note, then re-index: old chunks and vectors must be gone.
	if err := f.noteRepo.ReplaceContents(ctx, id, []storage.ContentRecord{
		{Kind: storage.KindText, Content: "beta content now"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.IndexNote(ctx, id); err != nil {
		t.Fatal(err)
	}

	chunks, err := f.chunkRepo.ListByNote(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("re-index appended instead of replacing: %d chunk rows", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "beta") {
		t.Errorf("stale chunk survived re-index: %q", chunks[0].Text)
	}

	alphaHits, err := f.store.Search(ctx, []float32{1, 0, 0}, 10, 0.5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(alphaHits) != 0 {
		t.Errorf("stale vectors survived re-index: %d", len(alphaHits))
	}
}

func TestIndexNoteIsIdempotent(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)
	ctx := context.Background()

	id := f.addNote(t, "Stable",
		storage.ContentRecord{Kind: storage.KindText, Content: "gamma rays are photons"},
	)

	first, err := f.engine.IndexNote(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.engine.IndexNote(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("chunk counts differ across runs: %d vs %d", first, second)
	}

	chunks, err := f.chunkRepo.ListByNote(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != second {
		t.Errorf("chunk table holds %d rows after double index, want %d", len(chunks), second)
	}
}

func TestIndexNoteEmbedderFailure(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)
	f.embedder.err = errors.New("backend down")

	id := f.addNote(t, "Unlucky",
		storage.ContentRecord{Kind: storage.KindText, Content: "alpha text"},
	)
	if _, err := f.engine.IndexNote(context.Background(), id); err == nil {
		t.Error("expected error when embedder fails")
	}
}

func TestAskBlankQuestion(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)

	for _, q := range []string{"", "   ", "\n"} {
		_, err := f.engine.Ask(context.Background(), AskRequest{Question: q})
		if !errors.Is(err, service.ErrInvalidInput) {
			t.Errorf("Ask(%q) error = %v, want ErrInvalidInput", q, err)
		}
	}
	if f.embedder.calls != 0 {
		t.Errorf("embedder called for blank questions")
	}
}

func TestAskGroundedAnswer(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)
	ctx := context.Background()

	id := f.addNote(t, "Physics",
		storage.ContentRecord{Kind: storage.KindText, Content: "An alpha particle carries two protons and two neutrons."},
	)
	if _, err := f.engine.IndexNote(ctx, id); err != nil {
		t.Fatal(err)
	}

	resp, err := f.engine.Ask(ctx, AskRequest{Question: "What is an alpha particle?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Answer != "generated answer" {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(resp.Sources))
	}
	src := resp.Sources[0]
	if src.NoteID != id || src.ChunkIndex != 0 || !strings.Contains(src.ChunkText, "alpha particle") {
		t.Errorf("unexpected source: %+v", src)
	}
	if src.Similarity < 0.5 {
		t.Errorf("source similarity %v below threshold", src.Similarity)
	}

	// The prompt enumerates contexts and ends with the question.
	if len(f.generator.lastMessages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(f.generator.lastMessages))
	}
	if f.generator.lastMessages[0].Role != "system" {
		t.Errorf("first message role = %q", f.generator.lastMessages[0].Role)
	}
	user := f.generator.lastMessages[1].Content
	if !strings.Contains(user, "[Context 1]") {
		t.Errorf("prompt missing enumerated context: %q", user)
	}
	if !strings.Contains(user, "Question: What is an alpha particle?") {
		t.Errorf("prompt missing question: %q", user)
	}
}

func TestAskNoRelevantChunks(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)
	ctx := context.Background()

	id := f.addNote(t, "Physics",
		storage.ContentRecord{Kind: storage.KindText, Content: "alpha decay emits helium nuclei"},
	)
	if _, err := f.engine.IndexNote(ctx, id); err != nil {
		t.Fatal(err)
	}

	// The question shares no keyword with any chunk.
	resp, err := f.engine.Ask(ctx, AskRequest{Question: "tell me about beta decay"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Answer != noInfoAnswer {
		t.Errorf("Answer = %q, want the fixed fallback", resp.Answer)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("Sources = %v, want empty non-nil slice", resp.Sources)
	}
	if f.generator.calls != 0 {
		t.Errorf("generator called %d times on the fallback path, want 0", f.generator.calls)
	}
}

func TestAskNoteScope(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)
	ctx := context.Background()

	first := f.addNote(t, "One",
		storage.ContentRecord{Kind: storage.KindText, Content: "alpha in note one"},
	)
	second := f.addNote(t, "Two",
		storage.ContentRecord{Kind: storage.KindText, Content: "alpha in note two"},
	)
	for _, id := range []int64{first, second} {
		if _, err := f.engine.IndexNote(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	resp, err := f.engine.Ask(ctx, AskRequest{Question: "where is alpha?", NoteID: &second})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Sources) == 0 {
		t.Fatal("expected sources from the scoped note")
	}
	for _, src := range resp.Sources {
		if src.NoteID != second {
			t.Errorf("source from note %d leaked into a scope for note %d", src.NoteID, second)
		}
	}
}

func TestAskTopKClamped(t *testing.T) {
	// Small chunks so one note yields well over maxTopK matching chunks.
	f := newEngineFixture(t, 30, 0)
	ctx := context.Background()

	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("alpha fact number repeated here. ")
	}
	id := f.addNote(t, "",
		storage.ContentRecord{Kind: storage.KindText, Content: b.String()},
	)
	count, err := f.engine.IndexNote(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if count <= maxTopK {
		t.Fatalf("fixture too small: only %d chunks indexed", count)
	}

	resp, err := f.engine.Ask(ctx, AskRequest{Question: "alpha?", TopK: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Sources) != maxTopK {
		t.Errorf("got %d sources, want clamp at %d", len(resp.Sources), maxTopK)
	}
}

func TestAskThresholdOverride(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)
	ctx := context.Background()

	// "alpha beta" chunk has cosine ~0.707 against a pure alpha query:
	// above the default 0.5, below an explicit 0.9.
	id := f.addNote(t, "",
		storage.ContentRecord{Kind: storage.KindText, Content: "alpha and beta together"},
	)
	if _, err := f.engine.IndexNote(ctx, id); err != nil {
		t.Fatal(err)
	}

	resp, err := f.engine.Ask(ctx, AskRequest{Question: "alpha?"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("default threshold should admit the chunk, got %d sources", len(resp.Sources))
	}

	strict := float32(0.9)
	resp, err = f.engine.Ask(ctx, AskRequest{Question: "alpha?", Threshold: &strict})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Sources) != 0 || resp.Answer != noInfoAnswer {
		t.Errorf("threshold 0.9 should exclude the chunk, got %d sources", len(resp.Sources))
	}
}

func TestAskGeneratorFailure(t *testing.T) {
	f := newEngineFixture(t, 1000, 200)
	ctx := context.Background()

	id := f.addNote(t, "",
		storage.ContentRecord{Kind: storage.KindText, Content: "alpha content"},
	)
	if _, err := f.engine.IndexNote(ctx, id); err != nil {
		t.Fatal(err)
	}

	f.generator.err = errors.New("generation timed out")
	if _, err := f.engine.Ask(ctx, AskRequest{Question: "alpha?"}); err == nil {
		t.Error("generation failure must surface as an error, not an empty answer")
	}
}
