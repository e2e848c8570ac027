package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/config"
	"github.com/mohammad-safakhou/itinerary/internal/agent/core"
	"github.com/mohammad-safakhou/itinerary/internal/cache"
	"github.com/mohammad-safakhou/itinerary/internal/logging"
	"github.com/mohammad-safakhou/itinerary/internal/tickets"
	"github.com/mohammad-safakhou/itinerary/mcp"
	"github.com/mohammad-safakhou/itinerary/mcp/tools/web_fetch"
	"github.com/mohammad-safakhou/itinerary/provider"
)

// loadApp reads configuration and builds the process logger.
func loadApp(cfgPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.General.LogLevel, cfg.General.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

func newFetcher(cfg config.ToolsConfig) (web_fetch.Fetcher, error) {
	return web_fetch.New(cfg.Fetcher, web_fetch.Options{
		Timeout:   cfg.FetchTimeout,
		MaxChars:  cfg.MaxChars,
		UserAgent: cfg.UserAgent,
	})
}

// buildRegistry wires agent, tool launcher, orchestrator and cache into a
// ticket registry. cfgPath is handed to a self-launched tool server. The
// returned cleanup releases the cache backend.
func buildRegistry(ctx context.Context, cfgPath string, cfg *config.Config, logger *zap.Logger) (*tickets.Registry, func(), error) {
	if err := cfg.RequireCredential(); err != nil {
		return nil, nil, err
	}
	agent, err := provider.NewAgent(cfg.LLM, logger)
	if err != nil {
		return nil, nil, err
	}
	command, args, err := cfg.Tools.ResolveCommand(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	launcher := mcp.StdioLauncher{
		Command:     command,
		Args:        args,
		CallTimeout: 2 * cfg.Tools.FetchTimeout,
		Logger:      logger,
	}
	orch := core.New(agent, launcher, logger)

	store, closeStore, err := cache.Open(ctx, cfg.Storage.Cache, logger)
	if err != nil {
		return nil, nil, err
	}
	reg := tickets.NewRegistry(orch, cache.NewResultCache(store, logger), logger, tickets.Options{
		JobTimeout:     cfg.Agents.JobTimeout,
		DedupeInflight: cfg.Agents.DedupeInflight,
	})
	cleanup := func() {
		if err := closeStore(); err != nil {
			logger.Warn("cache close", zap.Error(err))
		}
	}
	logger.Info("pipeline ready",
		zap.String("model", cfg.LLM.Model),
		zap.String("tool_command", command),
		zap.Strings("tool_args", args),
		zap.String("cache_backend", cfg.Storage.Cache.Backend),
	)
	return reg, cleanup, nil
}
