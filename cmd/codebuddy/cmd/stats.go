package cmd

import (
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/phuetz/code-buddy/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flagRoot)
			if err != nil {
				return err
			}
			defer a.Close()

			printer := ui.NewPrinter(os.Stdout, flagNoColor)
			stats := a.index.Stats()

			printer.Header("Index")
			printer.Printf("  chunks:  %d\n", stats.TotalChunks)
			printer.Printf("  files:   %d\n", stats.TotalFiles)
			printer.Printf("  tokens:  %d\n", stats.TotalTokens)
			if !stats.LastUpdated.IsZero() {
				printer.Printf("  updated: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
			}

			if len(stats.Languages) > 0 {
				printer.Header("Languages")
				for _, kv := range sortedCounts(stats.Languages) {
					printer.Printf("  %-12s %d\n", kv.key, kv.count)
				}
			}
			if len(stats.ChunkTypes) > 0 {
				printer.Header("Chunk types")
				for _, kv := range sortedCounts(stats.ChunkTypes) {
					printer.Printf("  %-12s %d\n", kv.key, kv.count)
				}
			}

			if showMetrics && a.queryLog != nil {
				summary, err := a.queryLog.Summarize(10)
				if err != nil {
					return err
				}
				printer.Header("Queries")
				printer.Printf("  total: %d\n", summary.TotalQueries)
				for strategy, count := range summary.StrategyCounts {
					printer.Printf("  %-12s %d\n", strategy, count)
				}
				if len(summary.TopTerms) > 0 {
					printer.Header("Top terms")
					for _, tc := range summary.TopTerms {
						printer.Printf("  %-16s %d\n", tc.Term, tc.Count)
					}
				}
				if len(summary.ZeroResultQueries) > 0 {
					printer.Header("Recent zero-result queries")
					for _, q := range summary.ZeroResultQueries {
						printer.Printf("  %s\n", q)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Include query metrics")
	return cmd
}

type keyCount struct {
	key   string
	count int
}

func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}
