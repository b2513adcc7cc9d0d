package search

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// hybridSearch fuses semantic and keyword retrieval with a weighted additive
// sum: 0.6 semantic + 0.4 keyword. Both legs fetch 2k candidates so fusion
// has room to reorder before truncating.
func (o *Orchestrator) hybridSearch(ctx context.Context, query string, k int, filters Filters) ([]ScoredChunk, error) {
	var (
		semantic []ScoredChunk
		keyword  []ScoredChunk
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		semantic, err = o.semanticSearch(gctx, query, k*2, filters)
		return err
	})
	g.Go(func() error {
		var err error
		keyword, err = o.keywordSearch(query, k*2, filters)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := fuseWeighted(semantic, keyword)
	sortScored(merged)
	return truncateScored(merged, k), nil
}

// fuseWeighted merges the two result lists by chunk id. A chunk present in
// both carries both weighted contributions and match type hybrid; a chunk in
// one list keeps its own match type with a single weighted score.
func fuseWeighted(semantic, keyword []ScoredChunk) []ScoredChunk {
	byID := make(map[string]*ScoredChunk, len(semantic)+len(keyword))
	order := make([]string, 0, len(semantic)+len(keyword))

	for _, sc := range semantic {
		entry := sc
		entry.Score = SemanticWeight * sc.Score
		byID[sc.Chunk.ID] = &entry
		order = append(order, sc.Chunk.ID)
	}
	for _, sc := range keyword {
		if existing, ok := byID[sc.Chunk.ID]; ok {
			existing.Score += KeywordWeight * sc.Score
			existing.MatchType = string(StrategyHybrid)
			existing.Highlights = sc.Highlights
			continue
		}
		entry := sc
		entry.Score = KeywordWeight * sc.Score
		byID[sc.Chunk.ID] = &entry
		order = append(order, sc.Chunk.ID)
	}

	merged := make([]ScoredChunk, 0, len(order))
	for _, id := range order {
		merged = append(merged, *byID[id])
	}
	return merged
}
