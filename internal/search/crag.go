package search

import (
	"context"
	"log/slog"
	"strings"
)

// Corrective retrieval thresholds.
const (
	maxCorrectiveIterations = 3
	relevanceScoreFloor     = 0.5
	relevanceTermFloor      = 0.3
	acceptConfidence        = 0.7
	refineTermCeiling       = 0.1
	evaluationSample        = 3
)

// correctiveSearch runs hybrid retrieval in a self-evaluating loop. Weak
// results with low term overlap trigger a synonym-expanded retry; the loop
// is bounded at three iterations and always returns the last result set.
func (o *Orchestrator) correctiveSearch(ctx context.Context, query string, k int, filters Filters) ([]ScoredChunk, error) {
	current := query
	var results []ScoredChunk

	for iteration := 1; iteration <= maxCorrectiveIterations; iteration++ {
		var err error
		results, err = o.hybridSearch(ctx, current, k, filters)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return results, nil
		}

		eval := evaluateResults(current, results)
		slog.Debug("corrective evaluation",
			slog.Int("iteration", iteration),
			slog.String("action", string(eval.Action)),
			slog.Float64("confidence", eval.Confidence))

		switch eval.Action {
		case CRAGRefine:
			if eval.RefinedQuery == current {
				return results, nil
			}
			current = eval.RefinedQuery
		default:
			// accept and reject both terminate with what we have.
			return results, nil
		}
	}
	return results, nil
}

// evaluateResults judges the top results against the query: average score
// over the sample, and term matches over a fixed tokens-times-sample-size
// denominator so a short result list cannot inflate the ratio.
func evaluateResults(query string, results []ScoredChunk) CRAGEvaluation {
	sample := results
	if len(sample) > evaluationSample {
		sample = sample[:evaluationSample]
	}

	var totalScore float64
	for _, sc := range sample {
		totalScore += sc.Score
	}
	avgScore := totalScore / float64(len(sample))

	tokens := queryTokens(query)
	termMatchRatio := 0.0
	if len(tokens) > 0 {
		matches := 0
		for _, token := range tokens {
			for _, sc := range sample {
				if strings.Contains(strings.ToLower(sc.Chunk.Content), token) ||
					strings.Contains(strings.ToLower(sc.Chunk.Metadata.Name), token) {
					matches++
				}
			}
		}
		termMatchRatio = float64(matches) / float64(len(tokens)*evaluationSample)
	}

	eval := CRAGEvaluation{
		IsRelevant: avgScore > relevanceScoreFloor && termMatchRatio > relevanceTermFloor,
		Confidence: (avgScore + termMatchRatio) / 2,
	}

	switch {
	case eval.IsRelevant && eval.Confidence > acceptConfidence:
		eval.Action = CRAGAccept
	case termMatchRatio < refineTermCeiling:
		eval.Action = CRAGRefine
		eval.RefinedQuery = expandQuery(query)
	default:
		eval.Action = CRAGReject
	}
	return eval
}
