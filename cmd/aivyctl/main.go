// Command aivyctl is an operator tool for the conversation service: it
// applies the database schema and runs the intent classifier and knowledge
// prioritizer offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aivy-conversation/internal/aivy/keywords"
	"aivy-conversation/internal/common/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	matching   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "aivyctl",
		Short:         "Operate the AIVY conversation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (defaults to the configs/ search path)")
	cmd.PersistentFlags().StringVar(&opts.matching, "matching", "", "keyword matching mode: substring or word")

	cmd.AddCommand(newMigrateCmd(opts), newClassifyCmd(opts), newRankCmd(opts))
	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFromFile(o.configPath)
	}
	return config.Load()
}

func (o *rootOptions) matcher() *keywords.Matcher {
	return keywords.NewMatcher(keywords.ParseMode(o.matching))
}
