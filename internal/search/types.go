// Package search provides the retrieval orchestrator: ranked chunk retrieval
// over the vector store and chunk index under five strategies, including a
// corrective (CRAG-style) loop.
package search

import (
	"time"

	"github.com/phuetz/code-buddy/internal/chunk"
)

// Strategy selects a retrieval algorithm.
type Strategy string

const (
	StrategySemantic   Strategy = "semantic"
	StrategyKeyword    Strategy = "keyword"
	StrategyHybrid     Strategy = "hybrid"
	StrategyReranked   Strategy = "reranked"
	StrategyCorrective Strategy = "corrective"
)

// Fusion weights for hybrid retrieval.
const (
	SemanticWeight = 0.6
	KeywordWeight  = 0.4
)

// DefaultTopK is the result count when the caller does not set one.
const DefaultTopK = 10

// maxHighlights caps the highlight spans collected per keyword result.
const maxHighlights = 10

// Filters restricts retrieval by chunk attributes. Empty slices match all.
type Filters struct {
	Languages  []string
	ChunkTypes []string
}

// Options configures a retrieval call.
type Options struct {
	TopK     int
	MinScore float64
	Filters  Filters
	Strategy Strategy
}

// Range is a highlight span in chunk content (byte offsets, end exclusive).
type Range struct {
	Start int
	End   int
}

// ScoredChunk is an ephemeral per-query result.
type ScoredChunk struct {
	Chunk      *chunk.Chunk
	Score      float64
	MatchType  string // semantic, keyword, hybrid
	Highlights []Range
}

// Response is the retrieval result envelope.
type Response struct {
	Chunks        []ScoredChunk
	Query         string
	TotalChunks   int
	RetrievalTime time.Duration
	Strategy      Strategy
}

// CRAGAction drives the corrective-retrieval state machine.
type CRAGAction string

const (
	CRAGAccept    CRAGAction = "accept"
	CRAGRefine    CRAGAction = "refine"
	CRAGWebSearch CRAGAction = "web_search" // reserved for an external collaborator
	CRAGReject    CRAGAction = "reject"
)

// CRAGEvaluation is the relevance judgment over the top retrieval results.
type CRAGEvaluation struct {
	IsRelevant   bool
	Confidence   float64
	Action       CRAGAction
	RefinedQuery string
}

// Recorder receives per-query telemetry. Implementations must be cheap;
// a nil recorder disables recording.
type Recorder interface {
	RecordQuery(query string, strategy string, latency time.Duration, results int)
}

// chunkMatches applies retrieval filters to a chunk.
func (f Filters) chunkMatches(c *chunk.Chunk) bool {
	if len(f.Languages) > 0 && !contains(f.Languages, c.Language) {
		return false
	}
	if len(f.ChunkTypes) > 0 && !contains(f.ChunkTypes, c.Type) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
