package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"aivy-conversation/internal/aivy/intent"
	"aivy-conversation/internal/aivy/prioritizer"
	"aivy-conversation/internal/models"
)

func newRankCmd(opts *rootOptions) *cobra.Command {
	var (
		query      string
		role       string
		size       string
		chunksPath string
		filter     bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank knowledge chunks from a JSON file for a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(chunksPath)
			if err != nil {
				return fmt.Errorf("read chunks: %w", err)
			}
			var chunks []models.KnowledgeChunk
			if err := json.Unmarshal(data, &chunks); err != nil {
				return fmt.Errorf("parse chunks: %w", err)
			}

			matcher := opts.matcher()
			sctx := models.DefaultSessionContext()
			sctx.ExecutiveProfile.Role = role
			sctx.ExecutiveProfile.InstitutionSize = models.InstitutionSize(size)

			p := prioritizer.New(matcher)
			if filter {
				chunks = p.FilterExecutiveAppropriate(chunks)
			}
			ranked := p.Rank(chunks, prioritizer.ExecutiveContext{
				Profile: sctx.ExecutiveProfile,
				State:   sctx.ConversationState,
				Intent:  intent.NewClassifier(matcher).Classify(query, sctx),
			})
			if len(ranked) > prioritizer.MaxResults {
				ranked = ranked[:prioritizer.MaxResults]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ranked)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tCOMBINED\tEXECUTIVE\tSIMILARITY\tCONTENT")
			for i, sc := range ranked {
				fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.3f\t%s\n", i+1, sc.CombinedScore, sc.ExecutiveScore, sc.Similarity, preview(sc.Content, 60))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "user query the chunks are ranked for")
	cmd.Flags().StringVar(&role, "role", "", "declared role of the person asking")
	cmd.Flags().StringVar(&size, "institution-size", "", "small, medium or large")
	cmd.Flags().StringVar(&chunksPath, "chunks", "", "JSON file holding an array of knowledge chunks")
	cmd.Flags().BoolVar(&filter, "filter", false, "drop chunks that are not executive appropriate first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("chunks")
	return cmd
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
