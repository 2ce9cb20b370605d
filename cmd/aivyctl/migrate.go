package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/aivy/retrieval"
	"aivy-conversation/internal/common/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var (
		dimensions int
		skipVector bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the conversation and knowledge tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if dimensions == 0 {
				dimensions = cfg.APIs.OpenAI.EmbeddingDimensions
			}

			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			n, err := migrate(ctx, pg.DB, dimensions, !skipVector)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d statements\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&dimensions, "dimensions", 0, "embedding dimensions for document_chunks (defaults to apis.openai.embedding_dimensions)")
	cmd.Flags().BoolVar(&skipVector, "skip-vector", false, "skip the pgvector extension and document_chunks table")
	return cmd
}

func migrate(ctx context.Context, db *sql.DB, dimensions int, withVector bool) (int, error) {
	stmts := append([]string{}, memory.Schema...)
	if withVector {
		if dimensions <= 0 {
			return 0, fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
		}
		stmts = append(stmts, retrieval.Schema(dimensions)...)
	}
	if err := database.Migrate(ctx, db, stmts...); err != nil {
		return 0, err
	}
	return len(stmts), nil
}
