package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ewdlop/DarkWebNote/internal/config"
	"github.com/ewdlop/DarkWebNote/internal/knowledge"
)

// NewQueryCmd creates the query subcommand.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question...>",
		Short: "Retrieve matching documents and print the augmented prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}
	cmd.Flags().IntP("top-k", "k", 0, "Number of documents to retrieve (default from config)")
	cmd.Flags().Bool("seed", false, "Seed the knowledge base with the default passages first")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	topK, err := cmd.Flags().GetInt("top-k")
	if err != nil {
		return err
	}
	if topK <= 0 {
		topK = cfg.Knowledge.TopK
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	store := knowledge.Open(cfg.Knowledge.Path, logger)

	if seed, _ := cmd.Flags().GetBool("seed"); seed {
		if err := knowledge.SeedDefaults(store); err != nil {
			return fmt.Errorf("seed knowledge base: %w", err)
		}
	}

	query := strings.Join(args, " ")
	result := knowledge.NewRAG(store).Generate(query, topK)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Retrieved %d documents:\n\n", result.NumRetrieved)
	for i, doc := range result.RetrievedDocuments {
		fmt.Fprintf(out, "Document %d (id %s):\n", i+1, doc.ID)
		if topic, ok := doc.Metadata["topic"]; ok {
			fmt.Fprintf(out, "  Topic: %v\n", topic)
		}
		fmt.Fprintf(out, "  %s\n\n", doc.Content)
	}
	fmt.Fprintf(out, "Augmented prompt:\n\n%s\n", result.AugmentedPrompt)
	return nil
}
