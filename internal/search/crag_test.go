package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phuetz/code-buddy/internal/chunk"
)

func evalFixture(score float64, content, name string) ScoredChunk {
	return ScoredChunk{
		Chunk: &chunk.Chunk{
			ID:       name,
			Content:  content,
			Metadata: chunk.Metadata{Name: name},
		},
		Score: score,
	}
}

func TestEvaluateResults_Accept(t *testing.T) {
	results := []ScoredChunk{
		evalFixture(0.9, "parse the config file", "parseConfig"),
		evalFixture(0.85, "reload config on change", "reloadConfig"),
	}

	eval := evaluateResults("config", results)
	assert.True(t, eval.IsRelevant)
	assert.Equal(t, CRAGAccept, eval.Action)
	assert.Greater(t, eval.Confidence, acceptConfidence)
	assert.Empty(t, eval.RefinedQuery)
}

func TestEvaluateResults_RefineOnWeakTermOverlap(t *testing.T) {
	results := []ScoredChunk{
		evalFixture(0.2, "completely unrelated text", "other"),
	}

	eval := evaluateResults("function", results)
	assert.False(t, eval.IsRelevant)
	assert.Equal(t, CRAGRefine, eval.Action)
	assert.Equal(t, "function method func", eval.RefinedQuery)
}

func TestEvaluateResults_RejectWeakScoresWithOverlap(t *testing.T) {
	// Terms match but scores are too low for relevance; overlap is too high
	// for a refine, so the loop gives up with what it has.
	results := []ScoredChunk{
		evalFixture(0.3, "the config loader", "loadConfig"),
	}

	eval := evaluateResults("config", results)
	assert.False(t, eval.IsRelevant)
	assert.Equal(t, CRAGReject, eval.Action)
}

func TestEvaluateResults_FixedDenominatorForShortLists(t *testing.T) {
	// One fully-matching strong chunk counts 1 out of 3 sample slots, not
	// 1 out of 1, so it cannot reach the accept confidence on its own.
	results := []ScoredChunk{
		evalFixture(0.9, "parse the config file", "parseConfig"),
	}

	eval := evaluateResults("config", results)
	assert.InDelta(t, (0.9+1.0/3.0)/2, eval.Confidence, 1e-9)
	assert.Equal(t, CRAGReject, eval.Action)
}

func TestEvaluateResults_SamplesTopThree(t *testing.T) {
	results := []ScoredChunk{
		evalFixture(1.0, "config", "a"),
		evalFixture(1.0, "config", "b"),
		evalFixture(1.0, "config", "c"),
		evalFixture(0.0, "unrelated", "d"),
	}

	// The fourth result is outside the sample and cannot drag the average.
	eval := evaluateResults("config", results)
	assert.Equal(t, CRAGAccept, eval.Action)
	assert.InDelta(t, 1.0, eval.Confidence, 1e-9)
}

func TestExpandQuery(t *testing.T) {
	assert.Equal(t, "function error method func exception throw",
		expandQuery("function error"))
	assert.Equal(t, "api endpoint route", expandQuery("api"))

	// No synonym entries: query passes through unchanged.
	assert.Equal(t, "quicksort pivot", expandQuery("quicksort pivot"))
}
