package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/phuetz/code-buddy/internal/index"
)

// Orchestrator dispatches queries to a retrieval strategy over a ChunkIndex.
// Safe for concurrent use; each call builds its results from snapshots.
type Orchestrator struct {
	index    *index.ChunkIndex
	recorder Recorder
}

// NewOrchestrator creates an orchestrator over the given index.
func NewOrchestrator(idx *index.ChunkIndex) *Orchestrator {
	return &Orchestrator{index: idx}
}

// SetRecorder installs a telemetry recorder. Nil disables recording.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// Retrieve runs a query under the selected strategy and returns ranked
// chunks. Results are ephemeral: built per query, never stored.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, opts Options) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyHybrid
	}

	start := time.Now()

	var (
		chunks []ScoredChunk
		err    error
	)
	switch opts.Strategy {
	case StrategySemantic:
		chunks, err = o.semanticSearch(ctx, query, opts.TopK, opts.Filters)
	case StrategyKeyword:
		chunks, err = o.keywordSearch(query, opts.TopK, opts.Filters)
	case StrategyHybrid, StrategyReranked:
		// Reranked is hybrid until a dedicated reranking model lands.
		chunks, err = o.hybridSearch(ctx, query, opts.TopK, opts.Filters)
	case StrategyCorrective:
		chunks, err = o.correctiveSearch(ctx, query, opts.TopK, opts.Filters)
	default:
		return nil, fmt.Errorf("unknown retrieval strategy: %q", opts.Strategy)
	}
	if err != nil {
		return nil, fmt.Errorf("%s retrieval: %w", opts.Strategy, err)
	}

	if opts.MinScore > 0 {
		kept := chunks[:0]
		for _, sc := range chunks {
			if sc.Score >= opts.MinScore {
				kept = append(kept, sc)
			}
		}
		chunks = kept
	}

	elapsed := time.Since(start)
	if o.recorder != nil {
		o.recorder.RecordQuery(query, string(opts.Strategy), elapsed, len(chunks))
	}
	slog.Debug("retrieval complete",
		slog.String("strategy", string(opts.Strategy)),
		slog.Int("results", len(chunks)),
		slog.Duration("elapsed", elapsed))

	return &Response{
		Chunks:        chunks,
		Query:         query,
		TotalChunks:   o.index.Count(),
		RetrievalTime: elapsed,
		Strategy:      opts.Strategy,
	}, nil
}

// sortScored orders results by score descending, chunk id ascending on ties.
// Deterministic ordering keeps repeated queries stable.
func sortScored(chunks []ScoredChunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Chunk.ID < chunks[j].Chunk.ID
	})
}

func truncateScored(chunks []ScoredChunk, k int) []ScoredChunk {
	if len(chunks) > k {
		return chunks[:k]
	}
	return chunks
}
