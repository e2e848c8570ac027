// Package mcp gives the agent a web-fetch tool over the Model Context
// Protocol: a stdio server exposing "fetch", launchers and the client
// session that adapts an MCP connection to core.ToolSession.
package mcp

import (
	"context"
	"io"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/mcp/tools/web_fetch"
)

// ServerName is reported in the initialize handshake.
const ServerName = "itinerary-fetch"

const serverVersion = "1.0.0"

// Server is a stateless MCP server exposing the fetch tool.
type Server struct {
	fetcher web_fetch.Fetcher
	logger  *zap.Logger
	mcp     *mcpserver.MCPServer
}

// NewServer wires the fetcher once.
func NewServer(fetcher web_fetch.Fetcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		fetcher: fetcher,
		logger:  logger.Named("mcp"),
		mcp: mcpserver.NewMCPServer(ServerName, serverVersion,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
		),
	}
	s.mcp.AddTool(fetchTool(), s.handleFetch)
	return s
}

// Serve speaks MCP over newline-delimited JSON-RPC on in/out until in is
// exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Named("stdio")))
	return stdio.Listen(ctx, in, out)
}
