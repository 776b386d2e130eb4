package index_service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"github.com/juridoc/juridoc/document"
)

const embedConcurrency = 4

// Builder turns document sets into queryable indexes. Builds are keyed by
// content fingerprint: identical input under identical configuration is
// embedded at most once while the entry stays cached.
type Builder struct {
	logger   *slog.Logger
	chunker  *Chunker
	embedder Embedder
	store    Store

	mu        sync.Mutex
	cache     map[string]Index
	cacheKeys []string
	cacheCap  int
	inflight  map[string]*buildCall
}

type buildCall struct {
	done chan struct{}
	idx  Index
	err  error
}

func NewBuilder(logger *slog.Logger, chunker *Chunker, embedder Embedder, store Store, cacheCap int) *Builder {
	return &Builder{
		logger:   logger,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		cache:    make(map[string]Index),
		cacheCap: cacheCap,
		inflight: make(map[string]*buildCall),
	}
}

// GetOrBuild returns the index for the document set, building it only if
// neither the cache nor the store has it. Concurrent callers with the same
// fingerprint share one build.
func (b *Builder) GetOrBuild(ctx context.Context, docs document.Set) (Index, error) {
	fingerprint := document.Fingerprint(docs, b.chunker.size, b.chunker.overlap, b.embedder.Model())

	b.mu.Lock()
	if idx, ok := b.cache[fingerprint]; ok {
		b.mu.Unlock()
		b.logger.Debug("Index cache hit", slog.String("fingerprint", fingerprint[:12]))
		return idx, nil
	}
	if call, ok := b.inflight[fingerprint]; ok {
		b.mu.Unlock()
		select {
		case <-call.done:
			return call.idx, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &buildCall{done: make(chan struct{})}
	b.inflight[fingerprint] = call
	b.mu.Unlock()

	idx, err := b.build(ctx, fingerprint, docs)

	call.idx, call.err = idx, err
	close(call.done)

	b.mu.Lock()
	delete(b.inflight, fingerprint)
	if err == nil && b.cacheCap > 0 {
		b.cacheInsert(fingerprint, idx)
	}
	b.mu.Unlock()

	return idx, err
}

// cacheInsert assumes b.mu is held.
func (b *Builder) cacheInsert(fingerprint string, idx Index) {
	if _, ok := b.cache[fingerprint]; ok {
		return
	}
	for len(b.cacheKeys) >= b.cacheCap {
		oldest := b.cacheKeys[0]
		b.cacheKeys = b.cacheKeys[1:]
		delete(b.cache, oldest)
	}
	b.cache[fingerprint] = idx
	b.cacheKeys = append(b.cacheKeys, fingerprint)
}

func (b *Builder) build(ctx context.Context, fingerprint string, docs document.Set) (Index, error) {
	if idx, ok, err := b.store.Lookup(ctx, fingerprint); err != nil {
		return nil, &IndexBuildError{Fingerprint: fingerprint, Stage: "lookup", Err: err}
	} else if ok {
		b.logger.Debug("Index store hit", slog.String("fingerprint", fingerprint[:12]))
		return idx, nil
	}

	start := time.Now()
	chunks := b.chunker.ChunkSet(docs)

	vectors := make([]pgvector.Vector, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i := range chunks {
		i := i
		g.Go(func() error {
			v, err := b.embedder.Embed(gctx, chunks[i].Text)
			if err != nil {
				return err
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &IndexBuildError{Fingerprint: fingerprint, Stage: "embedding", Err: err}
	}

	idx, err := b.store.Create(ctx, fingerprint, chunks, vectors)
	if err != nil {
		return nil, &IndexBuildError{Fingerprint: fingerprint, Stage: "storage", Err: err}
	}

	b.logger.Info("Index built",
		slog.String("fingerprint", fingerprint[:12]),
		slog.Int("document_count", len(docs)),
		slog.Int("chunk_count", len(chunks)),
		slog.Float64("build_seconds", time.Since(start).Seconds()))

	return idx, nil
}
