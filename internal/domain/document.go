package domain

import (
	"crypto/md5" //nolint:gosec // identity derivation, not security
	"encoding/hex"
	"fmt"
)

// Metadata keys attached to every indexed chunk.
const (
	MetaSource     = "source"
	MetaDocumentID = "document_id"
	MetaChunkID    = "chunk_id"
	MetaStartChar  = "start_char"
	MetaEndChar    = "end_char"
)

// DocumentID derives a stable identity from a document's logical name.
// Re-ingesting a file with the same name reuses the same identity, so
// chunk keys overwrite instead of duplicating.
func DocumentID(name string) string {
	sum := md5.Sum([]byte(name)) //nolint:gosec // identity derivation, not security
	return hex.EncodeToString(sum[:])
}

// ChunkID builds the index record id for a chunk of a document.
func ChunkID(documentID string, sequence int) string {
	return fmt.Sprintf("%s_%d", documentID, sequence)
}

// Chunk is a bounded contiguous slice of a document's cleaned text, the
// unit of indexing and retrieval. Offsets reference the cleaned text.
type Chunk struct {
	Text      string
	Sequence  int
	StartChar int
	EndChar   int
	Metadata  map[string]string
}

// Passage is a retrieved chunk with its similarity score. Produced only by
// the retriever, never persisted.
type Passage struct {
	Text     string
	Metadata map[string]string
	Score    float64
}
