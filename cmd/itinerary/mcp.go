package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/itinerary/mcp"
)

func mcpCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the web fetch tool over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadApp(*cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			fetcher, err := newFetcher(cfg.Tools)
			if err != nil {
				return err
			}
			defer fetcher.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return mcp.NewServer(fetcher, logger).Serve(ctx, os.Stdin, os.Stdout)
		},
	}
}
