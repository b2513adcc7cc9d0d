package search

import (
	"regexp"
	"strings"

	"github.com/phuetz/code-buddy/internal/chunk"
)

var queryTokenRegex = regexp.MustCompile(`[a-z0-9]+`)

// queryTokens lowercases the query and keeps alphanumeric runs longer than
// one character.
func queryTokens(query string) []string {
	raw := queryTokenRegex.FindAllString(strings.ToLower(query), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if len(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// keywordSearch scores every chunk lexically. Name matches weigh 2, content
// occurrences 0.5 each; the sum is normalized by token count and capped at 1.
func (o *Orchestrator) keywordSearch(query string, k int, filters Filters) ([]ScoredChunk, error) {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var scored []ScoredChunk
	for _, c := range o.index.Chunks() {
		if !filters.chunkMatches(c) {
			continue
		}
		score, highlights := scoreChunkKeyword(c, tokens)
		if score <= 0 {
			continue
		}
		scored = append(scored, ScoredChunk{
			Chunk:      c,
			Score:      score,
			MatchType:  string(StrategyKeyword),
			Highlights: highlights,
		})
	}

	sortScored(scored)
	return truncateScored(scored, k), nil
}

func scoreChunkKeyword(c *chunk.Chunk, tokens []string) (float64, []Range) {
	content := strings.ToLower(c.Content)
	name := strings.ToLower(c.Metadata.Name)

	var (
		score      float64
		highlights []Range
	)
	for _, token := range tokens {
		if name != "" && strings.Contains(name, token) {
			score += 2.0
		}

		occurrences := 0
		offset := 0
		for {
			i := strings.Index(content[offset:], token)
			if i < 0 {
				break
			}
			at := offset + i
			occurrences++
			if len(highlights) < maxHighlights {
				highlights = append(highlights, Range{Start: at, End: at + len(token)})
			}
			offset = at + len(token)
		}
		score += 0.5 * float64(occurrences)
	}

	score /= float64(len(tokens))
	if score > 1.0 {
		score = 1.0
	}
	return score, highlights
}
