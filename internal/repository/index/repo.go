// Package index wraps the vector database as an upsert/query/count/reset
// store of embedded text chunks.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/clariq-health/docqa/internal/db"
	"github.com/clariq-health/docqa/internal/domain"
)

// store is the consumer interface for the vector index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Hit is a raw index match: text, metadata, and the index-reported distance.
type Hit struct {
	Text     string
	Metadata map[string]string
	Distance float64
}

// delBatchSize bounds the number of keys per DEL during Reset.
const delBatchSize = 500

// Repo is the vector index for a single collection namespace. Records are
// stored as hashes under <prefix><collection>:<id> and searched through an
// FT index over that prefix.
type Repo struct {
	store      store
	prefix     string
	collection string
	dim        int
}

// New creates a vector index repository.
func New(s store, prefix, collection string, dim int) *Repo {
	return &Repo{store: s, prefix: prefix, collection: collection, dim: dim}
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("probe index %s: %w: %w", r.indexName(), err, domain.ErrIndexUnavailable)
	}
	if exists {
		return nil
	}

	// Tolerate a concurrent creation between the probe and here.
	err = r.store.CreateIndex(ctx, r.definition())
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w: %w", r.indexName(), err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Add upserts records. All four slices must have equal length. Re-adding an
// existing id overwrites it in place.
func (r *Repo) Add(
	ctx context.Context, ids []string, vectors [][]float32, texts []string, metas []map[string]string,
) error {
	if len(ids) != len(vectors) || len(ids) != len(texts) || len(ids) != len(metas) {
		return fmt.Errorf(
			"ids=%d vectors=%d texts=%d metadatas=%d: %w",
			len(ids), len(vectors), len(texts), len(metas), domain.ErrShapeMismatch,
		)
	}
	if len(ids) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(ids))
	for i, id := range ids {
		if r.dim > 0 && len(vectors[i]) != r.dim {
			return fmt.Errorf(
				"vector %d has %d dimensions, index expects %d: %w",
				i, len(vectors[i]), r.dim, domain.ErrShapeMismatch,
			)
		}
		items[i] = db.HashSetItem{
			Key:    r.docKey(id),
			Fields: buildHashFields(texts[i], vectors[i], metas[i]),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d records: %w: %w", len(items), err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Query returns up to k nearest records ordered by increasing distance.
// A missing index reads as an empty corpus.
func (r *Repo) Query(
	ctx context.Context, vector []float32, k int, filters map[string]string,
) ([]Hit, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.indexName(),
		Vector:    vector,
		K:         k,
		Filters:   filters,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("knn search: %w: %w", err, domain.ErrIndexUnavailable)
	}

	hits := make([]Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		text, meta := parseHashFields(e.Fields)
		hits = append(hits, Hit{Text: text, Metadata: meta, Distance: e.Distance})
	}
	return hits, nil
}

// Count returns the number of live records. A missing index counts as zero.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count: %w: %w", err, domain.ErrIndexUnavailable)
	}
	return n, nil
}

// Reset discards all records and recreates an empty index. Concurrent queries
// observe best-effort results; no snapshot isolation is promised.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w: %w", err, domain.ErrIndexUnavailable)
	}

	keys, err := r.store.Scan(ctx, r.keyPattern())
	if err != nil {
		return fmt.Errorf("scan records: %w: %w", err, domain.ErrIndexUnavailable)
	}
	for start := 0; start < len(keys); start += delBatchSize {
		end := min(start+delBatchSize, len(keys))
		if err := r.store.Del(ctx, keys[start:end]...); err != nil {
			return fmt.Errorf("delete records: %w: %w", err, domain.ErrIndexUnavailable)
		}
	}

	if err := r.store.CreateIndex(ctx, r.definition()); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("recreate index: %w: %w", err, domain.ErrIndexUnavailable)
	}
	return nil
}

func (r *Repo) definition() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.keyPrefix()},
		Fields: []db.IndexField{
			{
				Name:           "__vector",
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorFlat,
				VectorDim:      r.dim,
				VectorDistance: db.DistanceCosine,
			},
			{Name: domain.MetaSource, Type: db.IndexFieldTag},
			{Name: domain.MetaDocumentID, Type: db.IndexFieldTag},
		},
	}
}

func (r *Repo) keyPrefix() string {
	return fmt.Sprintf("%s%s:", r.prefix, r.collection)
}

func (r *Repo) keyPattern() string {
	return r.keyPrefix() + "*"
}

func (r *Repo) docKey(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s-idx", r.prefix, r.collection)
}
