package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aivy-conversation/internal/aivy/intent"
	"aivy-conversation/internal/models"
)

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var role, query string

	cmd := &cobra.Command{
		Use:   "classify [query]",
		Short: "Print the intent analysis of a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				query = strings.Join(args, " ")
			}
			if strings.TrimSpace(query) == "" {
				return errors.New("a query is required, pass --query or positional words")
			}

			sctx := models.DefaultSessionContext()
			sctx.ExecutiveProfile.Role = role

			analysis := intent.NewClassifier(opts.matcher()).Classify(query, sctx)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(analysis); err != nil {
				return fmt.Errorf("encode analysis: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "query to classify")
	cmd.Flags().StringVar(&role, "role", "", "declared role of the person asking")
	return cmd
}
