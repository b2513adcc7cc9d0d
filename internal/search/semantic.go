package search

import (
	"context"
	"fmt"
)

// semanticSearch embeds the query and ranks chunks by vector similarity.
// Filters apply after the store search, so the store is over-fetched when
// filters are present.
func (o *Orchestrator) semanticSearch(ctx context.Context, query string, k int, filters Filters) ([]ScoredChunk, error) {
	vector, err := o.index.Embedder().Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	fetch := k
	if len(filters.Languages) > 0 || len(filters.ChunkTypes) > 0 {
		fetch = k * 4
	}

	results, err := o.index.Vectors().Search(vector, fetch, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	scored := make([]ScoredChunk, 0, len(results))
	for _, r := range results {
		c, ok := o.index.Chunk(r.ID)
		if !ok {
			// Vector without a chunk record: stale store entry, skip.
			continue
		}
		if !filters.chunkMatches(c) {
			continue
		}
		scored = append(scored, ScoredChunk{
			Chunk:     c,
			Score:     r.Score,
			MatchType: string(StrategySemantic),
		})
		if len(scored) == k {
			break
		}
	}
	return scored, nil
}
