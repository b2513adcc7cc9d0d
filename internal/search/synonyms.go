package search

import "strings"

// codeSynonyms maps common programming query terms to vocabulary that code
// chunks are more likely to contain. Used by corrective retrieval to refine
// queries with weak term overlap.
var codeSynonyms = map[string][]string{
	"function": {"method", "func", "def", "procedure"},
	"class":    {"struct", "interface", "type"},
	"error":    {"exception", "throw", "catch", "fail"},
	"test":     {"spec", "describe", "it", "expect"},
	"api":      {"endpoint", "route", "handler"},
	"database": {"db", "sql", "query", "model"},
	"auth":     {"authentication", "login", "session", "token"},
}

// synonymsPerToken caps how many synonyms a matched token contributes.
const synonymsPerToken = 2

// expandQuery appends up to two synonyms for each query token with an entry
// in the synonym table. Tokens without synonyms pass through unchanged.
func expandQuery(query string) string {
	var extra []string
	for _, token := range queryTokens(query) {
		syns, ok := codeSynonyms[token]
		if !ok {
			continue
		}
		n := len(syns)
		if n > synonymsPerToken {
			n = synonymsPerToken
		}
		extra = append(extra, syns[:n]...)
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
