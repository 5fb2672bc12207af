package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ppiankov/sepcheck/internal/metrics"
	"github.com/ppiankov/sepcheck/internal/pipeline"
	"github.com/ppiankov/sepcheck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation API over HTTP",
	Long: `serve exposes:
  POST /v1/evaluate   evaluate a record (extraction JSON shape), ?as_of=YYYY-MM-DD
  POST /v1/extract    {"text": "...", "as_of": "..."} extract and evaluate
  GET  /healthz       liveness and dataset size
  GET  /metrics       Prometheus metrics

Example:
  sepcheck serve --addr :8080 --provider openai`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger := newLogger(cfg)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := pipeline.NewFromConfig(cfg, logger, metrics.New(reg))
	handler := server.New(p, reg, logger, cfg.Server.MaxBodyBytes, cfg.Server.WriteTimeout)

	return server.ListenAndServe(cmd.Context(), cfg.Server, handler.Routes(), logger)
}
