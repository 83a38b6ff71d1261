// ABOUTME: Indexer walks a repository, chunks files and ingests their embeddings
// ABOUTME: Negotiates the vector dimension and flushes points in fixed-size batches
package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/config"
	"github.com/harper/repoagent/internal/llm"
	"github.com/harper/repoagent/internal/models"
	"github.com/harper/repoagent/internal/storage"
	"github.com/panjf2000/ants/v2"
)

// ProbeText is embedded once per run to discover the model's vector size
const ProbeText = "dimension-probe"

// IndexLock serialises index runs into the same collection
type IndexLock interface {
	Acquire(ctx context.Context, name string) (func(context.Context) error, error)
}

// Indexer populates a collection from a repository tree
type Indexer struct {
	cfg      *config.Config
	embedder llm.Embedder
	store    storage.VectorStore
	engine   *ChunkEngine
	lock     IndexLock
	logger   *log.Logger
}

// NewIndexer creates an Indexer for cfg
func NewIndexer(cfg *config.Config, embedder llm.Embedder, store storage.VectorStore, logger *log.Logger) (*Indexer, error) {
	engine, err := NewChunkEngine(cfg.ChunkLines, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Indexer{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		engine:   engine,
		logger:   logger,
	}, nil
}

// SetLock makes Run hold lock for the duration of the run
func (ix *Indexer) SetLock(lock IndexLock) {
	ix.lock = lock
}

// fileJob is one file loaded and chunked by the worker pool
type fileJob struct {
	rel    string
	chunks []models.Chunk
	skip   string
}

// Run indexes the repository. With fresh set the collection is dropped first.
func (ix *Indexer) Run(ctx context.Context, fresh bool) (models.IndexStats, error) {
	started := time.Now()
	var stats models.IndexStats

	root, err := ix.cfg.RepoRoot()
	if err != nil {
		return stats, err
	}

	if ix.lock != nil {
		release, err := ix.lock.Acquire(ctx, ix.cfg.Collection)
		if err != nil {
			return stats, fmt.Errorf("failed to lock collection %s: %w", ix.cfg.Collection, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				ix.logger.Warn("failed to release index lock", "collection", ix.cfg.Collection, "err", err)
			}
		}()
	}

	dim, err := ix.resolveDimension(ctx)
	if err != nil {
		return stats, err
	}

	if fresh {
		if err := ix.store.DeleteCollection(ctx, ix.cfg.Collection); err != nil {
			return stats, err
		}
		ix.logger.Info("dropped collection", "collection", ix.cfg.Collection)
	}
	if err := ix.store.EnsureCollection(ctx, ix.cfg.Collection, dim); err != nil {
		return stats, err
	}

	walker, err := NewFileWalker(root, ix.cfg.Include, ix.cfg.Exclude)
	if err != nil {
		return stats, err
	}
	files, err := walker.Walk(ctx)
	if err != nil {
		return stats, err
	}
	ix.logger.Info("indexing", "files", len(files), "root", root, "dim", dim)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs, err := ix.loadFiles(runCtx, root, files)
	if err != nil {
		return stats, err
	}

	batch := make([]models.IndexedPoint, 0, ix.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.store.Upsert(ctx, ix.cfg.Collection, batch); err != nil {
			return err
		}
		stats.Batches++
		ix.logger.Debug("flushed batch", "points", len(batch), "batch", stats.Batches)
		batch = batch[:0]
		return nil
	}

	seq := 0
	for pending := range jobs {
		job := <-pending
		if job.skip != "" {
			stats.Skipped++
			ix.logger.Warn("skip", "file", job.rel, "reason", job.skip)
			continue
		}

		for _, chunk := range job.chunks {
			text := fmt.Sprintf("FILE:%s\n[L%d-%d]\n%s", job.rel, chunk.Start, chunk.End, chunk.Text)
			vec, err := ix.embedder.Embed(ctx, ix.cfg.EmbedModel, text)
			if err != nil {
				return stats, fmt.Errorf("failed to embed %s [L%d-%d]: %w", job.rel, chunk.Start, chunk.End, err)
			}
			if len(vec) != dim {
				return stats, fmt.Errorf("%w: %s [L%d-%d] got %d, collection expects %d",
					ErrDimensionMismatch, job.rel, chunk.Start, chunk.End, len(vec), dim)
			}

			seq++
			batch = append(batch, models.NewIndexedPoint(ix.cfg.Collection, job.rel, seq, chunk, vec))
			stats.Chunks++
			if len(batch) >= ix.cfg.BatchSize {
				if err := flush(); err != nil {
					return stats, err
				}
			}
		}
		stats.Files++
	}
	if err := flush(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(started)
	ix.logger.Info("index complete",
		"files", stats.Files, "skipped", stats.Skipped, "chunks", stats.Chunks,
		"batches", stats.Batches, "duration", stats.Duration.Round(time.Millisecond))
	return stats, nil
}

// resolveDimension embeds the probe. A configured VectorSize wins over the
// probed size and stands in for it when the probe fails.
func (ix *Indexer) resolveDimension(ctx context.Context) (int, error) {
	configured := ix.cfg.VectorSize

	vec, err := ix.embedder.Embed(ctx, ix.cfg.EmbedModel, ProbeText)
	if err == nil && len(vec) == 0 {
		err = ErrEmptyVector
	}
	if err != nil {
		if configured > 0 {
			ix.logger.Warn("dimension probe failed, using configured vector size", "size", configured, "err", err)
			return configured, nil
		}
		return 0, fmt.Errorf("%w (set VECTOR_SIZE to skip the probe): %w", ErrDimensionProbe, err)
	}

	if configured > 0 && configured != len(vec) {
		ix.logger.Warn("configured vector size differs from probe", "configured", configured, "probed", len(vec))
		return configured, nil
	}
	return len(vec), nil
}

// loadFiles reads and chunks files on a worker pool. The returned channel
// yields one result channel per file in walk order, so the consumer sees a
// deterministic sequence while reads run ahead of embedding.
func (ix *Indexer) loadFiles(ctx context.Context, root string, files []string) (<-chan chan fileJob, error) {
	pool, err := ants.NewPool(ix.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	out := make(chan chan fileJob, ix.cfg.Workers*2)
	go func() {
		defer close(out)
		defer pool.Release()

		for _, rel := range files {
			result := make(chan fileJob, 1)
			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
			if err := pool.Submit(func() { result <- ix.loadFile(root, rel) }); err != nil {
				result <- fileJob{rel: rel, skip: err.Error()}
			}
		}
	}()
	return out, nil
}

func (ix *Indexer) loadFile(root, rel string) fileJob {
	job := fileJob{rel: rel}
	path := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(path)
	if err != nil {
		job.skip = err.Error()
		return job
	}
	if info.Size() > ix.cfg.MaxFileBytes {
		job.skip = fmt.Sprintf("size %d exceeds %d bytes", info.Size(), ix.cfg.MaxFileBytes)
		return job
	}

	data, err := os.ReadFile(path)
	if err != nil {
		job.skip = err.Error()
		return job
	}
	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		job.skip = "binary or invalid UTF-8"
		return job
	}

	job.chunks = ix.engine.Chunk(string(data)).Collect()
	return job
}
