package mcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/internal/agent/core"
	"github.com/mohammad-safakhou/itinerary/mcp/tools/web_fetch"
)

// StdioLauncher starts an MCP server subprocess per session and talks to it
// over stdin/stdout. Any MCP stdio server works; the default is this binary's
// own "mcp" subcommand.
type StdioLauncher struct {
	Command string
	Args    []string
	Env     []string
	// CallTimeout bounds each request to the server; zero leaves them unbounded.
	CallTimeout time.Duration
	Logger      *zap.Logger
}

// Open starts the subprocess and completes the handshake.
func (l StdioLauncher) Open(ctx context.Context) (core.ToolSession, error) {
	if l.Command == "" {
		return nil, errors.New("mcp: no tool server command configured")
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := mcpclient.NewStdioMCPClient(l.Command, l.Env, l.Args...)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", l.Command, err)
	}
	if stderr, ok := mcpclient.GetStderr(c); ok {
		go forwardStderr(stderr, logger.Named("mcp.server").With(zap.String("command", l.Command)))
	}
	return newSession(ctx, c, l.CallTimeout, logger)
}

// forwardStderr drains the subprocess stderr into the log so a chatty server
// never blocks on a full pipe.
func forwardStderr(r io.Reader, logger *zap.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		logger.Debug(scanner.Text())
	}
}

// InProcessLauncher serves the fetch tool from the same process through the
// SDK's in-process transport.
type InProcessLauncher struct {
	Fetcher web_fetch.Fetcher
	Logger  *zap.Logger
}

func (l InProcessLauncher) Open(ctx context.Context) (core.ToolSession, error) {
	if l.Fetcher == nil {
		return nil, errors.New("mcp: in-process launcher has no fetcher")
	}
	srv := NewServer(l.Fetcher, l.Logger)
	c, err := mcpclient.NewInProcessClient(srv.mcp)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return newSession(ctx, c, 0, l.Logger)
}
