package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ewdlop/DarkWebNote/internal/config"
)

// NewRootCmd creates the root command for DarkWebNote.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "darkwebnote",
		Short: "Breadth-first web crawler feeding a keyword-retrieval knowledge base",
		Long: `DarkWebNote crawls web pages breadth-first from seed URLs, extracts their
text and links, and stores accepted documents in a content-addressed
knowledge base that can be queried by keyword overlap and folded into
augmented prompts.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "configs/config.yaml", "Path to configuration file")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewQueryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadConfig resolves the --config flag. A missing file is only an error
// when the flag was set explicitly; otherwise defaults apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
			defaults := config.Default()
			return &defaults, nil
		}
		return nil, err
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
