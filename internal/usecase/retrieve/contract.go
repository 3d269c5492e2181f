package retrieve

import (
	"context"

	"github.com/clariq-health/docqa/internal/domain"
	"github.com/clariq-health/docqa/internal/repository/index"
)

// Index defines the vector index contract for retrieval.
type Index interface {
	Query(ctx context.Context, vector []float32, k int, filters map[string]string) ([]index.Hit, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
