package commands

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/penwyp/go-metrobus/internal/application/dashboard"
	"github.com/penwyp/go-metrobus/internal/server"
	"github.com/penwyp/go-metrobus/internal/util"
)

var (
	serveAddr    string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics snapshot over HTTP",
	Long: `Keeps an analytics snapshot fresh as events arrive and serves it as JSON:

  GET  /health
  GET  /analytics/summary
  GET  /analytics/timeseries?hours=N
  GET  /analytics/behavior
  GET  /analytics/events?type=&line=&limit=&offset=
  POST /analytics/events
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: runServeCmd,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "Allowed CORS origins (default any)")
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	events, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer events.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pipeline, err := dashboard.NewPipeline(events, dashboardConfig(cfg, 1), reg)
	if err != nil {
		return err
	}
	srv := server.New(events, pipeline, server.Options{
		AllowedOrigins: serveOrigins,
		Registry:       reg,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pipeline.Run(ctx); err != nil {
			util.LogErrorf("Refresh pipeline stopped: %v", err)
		}
	}()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	err = srv.ListenAndServe(ctx, addr)
	cancel()
	wg.Wait()
	return err
}
