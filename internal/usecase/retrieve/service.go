// Package retrieve turns a free-text query into threshold-filtered passages
// from the vector index.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/clariq-health/docqa/internal/domain"
	"github.com/clariq-health/docqa/internal/metrics"
)

// Service retrieves relevant passages for a query.
type Service struct {
	index     Index
	embed     Embedder
	topK      int
	threshold float64
	logger    *zap.Logger
}

// New creates a retrieval service.
func New(idx Index, embed Embedder, topK int, threshold float64, logger *zap.Logger) *Service {
	return &Service{index: idx, embed: embed, topK: topK, threshold: threshold, logger: logger}
}

// Search returns passages relevant to the query, most similar first. Upstream
// failures degrade to an empty result: callers always get a usable answer
// path, never a retrieval error.
func (s *Service) Search(ctx context.Context, query string) []domain.Passage {
	passages, err := s.search(ctx, query)
	if err != nil {
		cause := "index"
		if errors.Is(err, domain.ErrEmbedding) {
			cause = "embedding"
		}
		metrics.RetrievalDegradedTotal.WithLabelValues(cause).Inc()
		s.logger.Warn("retrieval degraded to empty result",
			zap.String("cause", cause),
			zap.Error(err),
		)
		return nil
	}
	metrics.RetrievalResultsReturned.Observe(float64(len(passages)))
	return passages
}

// search embeds the query, runs KNN, converts distances to similarity scores,
// and drops everything below the threshold.
func (s *Service) search(ctx context.Context, query string) ([]domain.Passage, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.index.Query(ctx, emb.Embedding, s.topK, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	passages := make([]domain.Passage, 0, len(hits))
	for _, h := range hits {
		score := 1 - h.Distance
		if score < s.threshold {
			continue
		}
		passages = append(passages, domain.Passage{
			Text:     h.Text,
			Metadata: h.Metadata,
			Score:    score,
		})
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})

	return passages, nil
}
