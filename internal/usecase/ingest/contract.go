package ingest

import (
	"context"

	"github.com/clariq-health/docqa/internal/domain"
)

// Extractor turns raw document bytes into plain text.
type Extractor interface {
	Extract(raw []byte, name string) (string, error)
}

// Chunker splits cleaned text into overlapping chunks.
type Chunker interface {
	Chunk(text string, base map[string]string) []domain.Chunk
}

// Embedder vectorizes chunk texts in batch.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Index defines the vector index contract for ingestion.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32, texts []string, metas []map[string]string) error
	Reset(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
