package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/phuetz/code-buddy/internal/chunk"
	"github.com/phuetz/code-buddy/internal/config"
	"github.com/phuetz/code-buddy/internal/embed"
	"github.com/phuetz/code-buddy/internal/index"
	"github.com/phuetz/code-buddy/internal/search"
	"github.com/phuetz/code-buddy/internal/store"
	"github.com/phuetz/code-buddy/internal/telemetry"
)

// app wires the configured collaborators for one command invocation.
type app struct {
	cfg          *config.Config
	root         string
	index        *index.ChunkIndex
	orchestrator *search.Orchestrator
	queryLog     *telemetry.QueryLog
}

// newApp loads configuration and builds the index stack for rootDir.
// Persisted state is loaded when present.
func newApp(rootDir string) (*app, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	indexDir := cfg.Index.Path
	if indexDir != "" && !filepath.IsAbs(indexDir) {
		indexDir = filepath.Join(root, indexDir)
	}

	embedder, err := embed.NewEmbedder(embed.Options{
		Provider:   cfg.Embeddings.Provider,
		Dimensions: cfg.Embeddings.Dimensions,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		return nil, err
	}

	var vectors store.VectorStore
	switch cfg.Store.Backend {
	case "brute":
		vectors = store.NewBruteForceStore(cfg.Embeddings.Dimensions,
			filepath.Join(indexDir, "vectors.json"))
	case "partitioned":
		vectors = store.NewPartitionedStore(cfg.Embeddings.Dimensions, "language", indexDir)
	default:
		vectors = store.NewHNSWStore(store.HNSWConfig{
			Dimensions:     cfg.Embeddings.Dimensions,
			M:              cfg.Store.M,
			EfConstruction: cfg.Store.EfConstruction,
			EfSearch:       cfg.Store.EfSearch,
		}, filepath.Join(indexDir, "vectors-hnsw.json"))
	}

	ci, err := index.New(vectors, embedder, chunk.NewBlockChunker(), index.Options{
		IndexPath: indexDir,
		Include:   cfg.Paths.Include,
		Exclude:   cfg.Paths.Exclude,
	})
	if err != nil {
		return nil, err
	}
	if err := ci.LoadIndex(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:          cfg,
		root:         root,
		index:        ci,
		orchestrator: search.NewOrchestrator(ci),
	}

	if cfg.Telemetry.Enabled && indexDir != "" {
		ql, err := telemetry.Open(filepath.Join(indexDir, "metrics.db"))
		if err != nil {
			slog.Warn("query metrics disabled", slog.String("error", err.Error()))
		} else {
			a.queryLog = ql
			a.orchestrator.SetRecorder(ql)
		}
	}

	return a, nil
}

// Close flushes index state and releases resources.
func (a *app) Close() {
	if a.queryLog != nil {
		if err := a.queryLog.Close(); err != nil {
			slog.Warn("failed to close query metrics", slog.String("error", err.Error()))
		}
	}
	if err := a.index.Close(); err != nil {
		slog.Warn("failed to close index", slog.String("error", err.Error()))
	}
}
