package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/templetwo/breakthrough/internal/adaptive"
	"github.com/templetwo/breakthrough/internal/narrate"
	"github.com/templetwo/breakthrough/internal/serve"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and archive over HTTP",
		Long: `Serve the controller dashboard, the session archive and a live
narration websocket over HTTP. The server runs until interrupted.

Endpoints:
  GET /healthz               Liveness probe
  GET /api/dashboard         Controller health snapshot
  GET /api/sessions          Archived sessions, newest first
  GET /api/sessions/{id}     One archived session in full
  GET /api/improvements      Self-improvement event log
  GET /ws                    Narration event stream (websocket)

Examples:
  bkt serve
  bkt serve --addr 0.0.0.0:8787`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func runServe(addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	logger := slog.Default()

	store, err := openArchive(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	broadcaster := narrate.NewBroadcaster(logger)

	controller, err := adaptive.NewController(cfg.Constraints,
		adaptive.WithLogger(logger),
		adaptive.WithTriggerCap(cfg.TriggerCap),
		adaptive.WithStuckConfig(cfg.Stuck.Detector()),
		adaptive.WithNarrator(broadcaster),
		adaptive.WithImprovementSink(func(event adaptive.ImprovementEvent) {
			if err := store.SaveImprovementEvent(event); err != nil {
				logger.Warn("archiving improvement event failed", slog.String("error", err.Error()))
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("building controller: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := serve.NewServer(controller, store, broadcaster, logger)
	return server.ListenAndServe(ctx, addr)
}
