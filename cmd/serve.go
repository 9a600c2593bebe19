package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/verbatim/internal/orchestrator"
	"github.com/Yates-Labs/verbatim/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the answer pipeline over HTTP",
	Long: `Serve the answer pipeline over HTTP.

Endpoints:
  POST /ask      {"question": "..."} -> {"answer", "sources", "confidence", "reason"}
  POST /rag      alias of /ask
  GET  /health   service status, chunk count and index state

Refusals are returned with status 200. Status 503 means the embedding
service, vector index or LLM could not be reached.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := orchestrator.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	router := server.NewRouter(server.Deps{
		Answerer:       rt.Pipeline,
		ServiceName:    "verbatim",
		Version:        Version,
		Chunks:         rt.Store.Len(),
		Index:          rt.VectorStore,
		RequestTimeout: timeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	return server.Run(ctx, fmt.Sprintf(":%s", cfg.Server.Port), router)
}
