// Package ingest runs the document pipeline: extract, chunk, embed, index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/clariq-health/docqa/internal/domain"
	"github.com/clariq-health/docqa/internal/extract"
	"github.com/clariq-health/docqa/internal/metrics"
)

// FileResult reports the outcome for one file during a reindex.
type FileResult struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Err      error  `json:"-"`
}

// Summary aggregates a full reindex run. Status is "completed" when at least
// the pipeline ran; individual file failures are carried in Files.
type Summary struct {
	Status      string       `json:"status"`
	TotalChunks int          `json:"total_chunks"`
	Files       []FileResult `json:"files"`
}

// Stats describes the current state of the corpus.
type Stats struct {
	TotalDocuments int    `json:"total_documents"`
	TotalChunks    int    `json:"total_chunks"`
	Collection     string `json:"collection_name"`
}

// Service ingests documents into the vector index.
type Service struct {
	extractor  Extractor
	chunker    Chunker
	embed      Embedder
	index      Index
	dataDir    string
	collection string
	logger     *zap.Logger
}

// New creates an ingestion service.
func New(
	ex Extractor, ch Chunker, embed Embedder, idx Index,
	dataDir, collection string, logger *zap.Logger,
) *Service {
	return &Service{
		extractor:  ex,
		chunker:    ch,
		embed:      embed,
		index:      idx,
		dataDir:    dataDir,
		collection: collection,
		logger:     logger,
	}
}

// IngestDocument runs one document through the pipeline and returns the
// number of chunks written. A document whose cleaned text produces no chunks
// ingests successfully as zero chunks.
func (s *Service) IngestDocument(ctx context.Context, raw []byte, name string) (int, error) {
	text, err := s.extractor.Extract(raw, name)
	if err != nil {
		metrics.IngestFailuresTotal.WithLabelValues("extract").Inc()
		return 0, fmt.Errorf("extract %s: %w", name, err)
	}

	docID := domain.DocumentID(name)
	chunks := s.chunker.Chunk(text, map[string]string{
		domain.MetaSource:     name,
		domain.MetaDocumentID: docID,
	})
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batch, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		metrics.IngestFailuresTotal.WithLabelValues("embed").Inc()
		return 0, fmt.Errorf("embed %s: %w", name, err)
	}

	ids := make([]string, len(chunks))
	metas := make([]map[string]string, len(chunks))
	for i, c := range chunks {
		ids[i] = domain.ChunkID(docID, c.Sequence)
		metas[i] = c.Metadata
	}

	if err := s.index.Add(ctx, ids, batch.Embeddings, texts, metas); err != nil {
		metrics.IngestFailuresTotal.WithLabelValues("index").Inc()
		return 0, fmt.Errorf("index %s: %w", name, err)
	}

	metrics.IngestChunksTotal.Add(float64(len(chunks)))
	s.logger.Info("document ingested",
		zap.String("filename", name),
		zap.String("document_id", docID),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// SaveAndIngest persists the uploaded file into the data directory so a later
// reindex can see it, then ingests it.
func (s *Service) SaveAndIngest(ctx context.Context, raw []byte, name string) (int, error) {
	if !extract.Supported(name) {
		return 0, fmt.Errorf("unsupported file type %s: %w", filepath.Ext(name), domain.ErrExtraction)
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return 0, fmt.Errorf("create data dir: %w", err)
	}
	// Base name only: the upload filename must not escape the data dir.
	path := filepath.Join(s.dataDir, filepath.Base(name))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return 0, fmt.Errorf("save upload: %w", err)
	}
	return s.IngestDocument(ctx, raw, filepath.Base(name))
}

// ReindexAll rebuilds the whole index from the data directory. Files fail in
// isolation; one unreadable document never aborts the rest of the run.
func (s *Service) ReindexAll(ctx context.Context, dir string) (Summary, error) {
	if dir == "" {
		dir = s.dataDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create data dir: %w", err)
	}

	files, err := eligibleFiles(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("list documents: %w", err)
	}
	if len(files) == 0 {
		return Summary{Status: "completed"}, nil
	}

	if err := s.index.Reset(ctx); err != nil {
		return Summary{}, fmt.Errorf("reset index: %w", err)
	}

	summary := Summary{Status: "completed", Files: make([]FileResult, 0, len(files))}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		name := filepath.Base(path)

		raw, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable file", zap.String("filename", name), zap.Error(err))
			summary.Files = append(summary.Files, FileResult{Filename: name, Err: err})
			continue
		}

		n, err := s.IngestDocument(ctx, raw, name)
		if err != nil {
			s.logger.Warn("skipping failed document", zap.String("filename", name), zap.Error(err))
			summary.Files = append(summary.Files, FileResult{Filename: name, Err: err})
			continue
		}

		summary.TotalChunks += n
		summary.Files = append(summary.Files, FileResult{Filename: name, Chunks: n})
	}

	s.logger.Info("reindex finished",
		zap.Int("files", len(files)),
		zap.Int("total_chunks", summary.TotalChunks),
	)
	return summary, nil
}

// Stats reports corpus size: eligible files on disk and chunks in the index.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	chunks, err := s.index.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count chunks: %w", err)
	}

	files, err := eligibleFiles(s.dataDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Stats{}, fmt.Errorf("list documents: %w", err)
	}

	return Stats{
		TotalDocuments: len(files),
		TotalChunks:    chunks,
		Collection:     s.collection,
	}, nil
}

// eligibleFiles returns ingestible files under dir in deterministic order.
func eligibleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !extract.Supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
