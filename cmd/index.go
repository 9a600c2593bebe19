package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/verbatim/internal/orchestrator"
)

var indexCmd = &cobra.Command{
	Use:   "index [document]",
	Short: "Chunk and index a knowledge document",
	Long: `Chunk a knowledge document (.txt, .md or .pdf), write the chunk manifest
and replace the configured vector index with the chunk embeddings.

Examples:
  verbatim index data/restaurant_faq.txt
  verbatim index docs/policy.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	n, err := orchestrator.BuildIndex(cmd.Context(), cfg, args[0])
	if err != nil {
		return err
	}

	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
		fmt.Sprintf("✓ Indexed %d chunks into %s (%s backend)", n, cfg.Knowledge.Manifest, cfg.Knowledge.Backend)))
	return nil
}
