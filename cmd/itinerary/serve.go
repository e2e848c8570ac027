package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/internal/runtime"
	srv "github.com/mohammad-safakhou/itinerary/internal/server"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadApp(*cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tel, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, runtime.TelemetryOptions{ServiceName: "itinerary", ServiceVersion: version}, logger)
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tel.Shutdown(sctx); err != nil {
					logger.Warn("telemetry shutdown", zap.Error(err))
				}
			}()

			reg, cleanup, err := buildRegistry(ctx, *cfgPath, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			runErr := srv.New(reg, tel.MetricsHandler(), logger).Run(ctx, cfg.Server.Address, cfg.Server.ShutdownTimeout)

			cctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := reg.Close(cctx); err != nil {
				logger.Warn("jobs still running at exit", zap.Error(err))
			}
			return runErr
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
	return serve
}

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"
