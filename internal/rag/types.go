package rag

// AskRequest represents a RAG query request.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// NoteID optionally scopes retrieval to a single note.
	NoteID *int64 `json:"note_id,omitempty"`
	// TopK is the maximum number of chunks to retrieve. 0 means the
	// configured default; values above maxTopK are clamped.
	TopK int `json:"top_k,omitempty"`
	// Threshold is the minimum similarity for a chunk to qualify.
	// nil means the configured default.
	Threshold *float32 `json:"threshold,omitempty"`
}

// Source is a retrieved chunk cited by an answer.
type Source struct {
	// NoteID is the note the chunk came from.
	NoteID int64 `json:"note_id"`
	// ChunkText is the chunk's text content.
	ChunkText string `json:"chunk_text"`
	// ChunkIndex is the chunk's position within the note's corpus.
	ChunkIndex int `json:"chunk_index"`
	// Similarity is the cosine similarity of the chunk to the question.
	Similarity float32 `json:"similarity"`
}

// AskResponse represents the response from a RAG query.
type AskResponse struct {
	// Answer is the generated answer, or the fixed fallback text when no
	// chunk cleared the threshold.
	Answer string `json:"answer"`
	// Sources are the chunks the answer is grounded in, most relevant first.
	// Empty when the fallback answer was returned.
	Sources []Source `json:"sources"`
}
