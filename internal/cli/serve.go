package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/metrics"
	"github.com/ppiankov/precedent/internal/server"
)

var (
	serveAddr  string
	serveGrace time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve claim checks over HTTP",
	Long: `Serve loads the archive once and answers requests until interrupted:

  GET  /api/v1/health
  POST /api/v1/check           {"claim": "..."}
  POST /api/v1/speaker         {"text": "..."}
  GET  /api/v1/speakers
  GET  /api/v1/speakers/:name
  GET  /metrics                (Prometheus, unless server.metrics is false)

Example:
  precedent serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&noExternal, "no-external", false, "search the archive only")
	serveCmd.Flags().DurationVar(&serveGrace, "grace", 10*time.Second, "time allowed for in-flight requests on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newServices(ctx, cfg, log, !noExternal)
	if err != nil {
		return err
	}
	defer svc.Close()

	var gatherer prometheus.Gatherer
	if cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		svc.engine.SetObserver(metrics.New(reg))
		gatherer = reg
	}

	log.Info("archive loaded",
		zap.Int("entries", len(svc.archive.Entries)),
		zap.Int("speakers", len(svc.tracker.Roster())),
	)

	srv := server.New(cfg.Server, svc.engine, svc.tracker, gatherer, log)
	if err := srv.Run(ctx, serveGrace); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
