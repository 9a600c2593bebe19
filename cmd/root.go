package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/verbatim/internal/config"
)

// Version is stamped at build time with -ldflags "-X github.com/Yates-Labs/verbatim/cmd.Version=..."
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "verbatim",
	Short: "Verbatim - grounded FAQ answering",
	Long: `Verbatim answers questions from a fixed knowledge document and refuses
whenever it cannot quote the document word for word.

Answers pass two gates: retrieval confidence must clear a similarity threshold,
and the generated answer must contain a quote found verbatim in the retrieved chunks.
Everything else is a well-formed refusal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the TOML config file")
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
