package cmd

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phuetz/code-buddy/internal/search"
	"github.com/phuetz/code-buddy/internal/ui"
)

func newSearchCmd() *cobra.Command {
	var (
		strategy string
		topK     int
		minScore float64
		langs    []string
		types    []string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Long: `Search runs a natural-language query against the index. Strategies:
semantic (vector similarity), keyword (lexical), hybrid (weighted fusion,
default), reranked, and corrective (self-evaluating with query refinement).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			a, err := newApp(flagRoot)
			if err != nil {
				return err
			}
			defer a.Close()

			if strategy == "" {
				strategy = a.cfg.Search.Strategy
			}
			if topK == 0 {
				topK = a.cfg.Search.TopK
			}
			if minScore == 0 {
				minScore = a.cfg.Search.MinScore
			}

			resp, err := a.orchestrator.Retrieve(cmd.Context(), query, search.Options{
				TopK:     topK,
				MinScore: minScore,
				Strategy: search.Strategy(strategy),
				Filters: search.Filters{
					Languages:  langs,
					ChunkTypes: types,
				},
			})
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(resp)
			}
			printResults(resp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Retrieval strategy (semantic, keyword, hybrid, reranked, corrective)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum result score")
	cmd.Flags().StringSliceVar(&langs, "lang", nil, "Filter by language (repeatable)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Filter by chunk type (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit results as JSON")

	return cmd
}

func printResults(resp *search.Response) {
	printer := ui.NewPrinter(os.Stdout, flagNoColor)

	if len(resp.Chunks) == 0 {
		printer.Warn("no results for %q", resp.Query)
		return
	}

	for i, sc := range resp.Chunks {
		printer.Result(i+1, sc.Score, sc.Chunk.FilePath,
			sc.Chunk.StartLine, sc.Chunk.EndLine,
			sc.Chunk.Metadata.Name, sc.Chunk.Content)
	}
	printer.Printf("\n%d results (%s, %s strategy, %d chunks indexed)\n",
		len(resp.Chunks), ui.Duration(resp.RetrievalTime), resp.Strategy, resp.TotalChunks)
}

type jsonResult struct {
	FilePath  string  `json:"filePath"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Language  string  `json:"language"`
	Type      string  `json:"type"`
	Name      string  `json:"name,omitempty"`
	Score     float64 `json:"score"`
	MatchType string  `json:"matchType"`
	Content   string  `json:"content"`
}

func printJSON(resp *search.Response) error {
	results := make([]jsonResult, len(resp.Chunks))
	for i, sc := range resp.Chunks {
		results[i] = jsonResult{
			FilePath:  sc.Chunk.FilePath,
			StartLine: sc.Chunk.StartLine,
			EndLine:   sc.Chunk.EndLine,
			Language:  sc.Chunk.Language,
			Type:      sc.Chunk.Type,
			Name:      sc.Chunk.Metadata.Name,
			Score:     sc.Score,
			MatchType: sc.MatchType,
			Content:   sc.Chunk.Content,
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
