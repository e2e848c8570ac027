package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/internal/agent/core"
)

// Session adapts an MCP client connection to core.ToolSession.
type Session struct {
	client      *mcpclient.Client
	logger      *zap.Logger
	callTimeout time.Duration

	mu     sync.Mutex
	known  map[string]bool
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// newSession completes the handshake on c. The session owns c from here on,
// including on error.
func newSession(ctx context.Context, c *mcpclient.Client, callTimeout time.Duration, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{client: c, logger: logger.Named("mcp.client"), callTimeout: callTimeout}

	req := mcpgo.InitializeRequest{}
	req.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcpgo.Implementation{Name: "itinerary", Version: "1.0.0"}

	cctx, cancel := s.callContext(ctx)
	defer cancel()
	res, err := c.Initialize(cctx, req)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("initialize: %w", s.classify(ctx, cctx, err))
	}
	s.logger.Debug("session initialized",
		zap.String("server", res.ServerInfo.Name),
		zap.String("protocol", res.ProtocolVersion),
	)
	return s, nil
}

func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout > 0 {
		return context.WithTimeout(ctx, s.callTimeout)
	}
	return context.WithCancel(ctx)
}

// classify marks failures of the channel itself with core.ErrToolTransport.
// A peer that stops answering within the call timeout counts as one.
func (s *Session) classify(ctx, cctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if cctx.Err() != nil {
		return fmt.Errorf("%w: no response within %s", core.ErrToolTransport, s.callTimeout)
	}
	if isTransportFailure(err) {
		return fmt.Errorf("%w: %v", core.ErrToolTransport, err)
	}
	return err
}

func isTransportFailure(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ListTools returns every tool the server advertises, following pagination.
func (s *Session) ListTools(ctx context.Context) ([]core.Tool, error) {
	if s.isClosed() {
		return nil, fmt.Errorf("%w: session closed", core.ErrToolTransport)
	}
	var out []core.Tool
	known := map[string]bool{}
	req := mcpgo.ListToolsRequest{}
	for {
		cctx, cancel := s.callContext(ctx)
		res, err := s.client.ListTools(cctx, req)
		if err != nil {
			err = s.classify(ctx, cctx, err)
			cancel()
			return nil, fmt.Errorf("list tools: %w", err)
		}
		cancel()
		for _, t := range res.Tools {
			out = append(out, core.Tool{Name: t.Name, Description: t.Description, InputSchema: inputSchema(t.InputSchema)})
			known[t.Name] = true
		}
		if res.NextCursor == "" {
			break
		}
		req.Params.Cursor = res.NextCursor
	}
	s.mu.Lock()
	s.known = known
	s.mu.Unlock()
	return out, nil
}

func inputSchema(in mcpgo.ToolInputSchema) map[string]any {
	typ := in.Type
	if typ == "" {
		typ = "object"
	}
	props := in.Properties
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{"type": typ, "properties": props}
	if len(in.Required) > 0 {
		schema["required"] = in.Required
	}
	return schema
}

// CallTool invokes a tool and joins its text content. Tool-reported failures
// come back with IsError set. Calling a tool the server did not advertise is
// an error the model can recover from.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (core.ToolOutput, error) {
	s.mu.Lock()
	closed, known := s.closed, s.known
	s.mu.Unlock()
	if closed {
		return core.ToolOutput{}, fmt.Errorf("%w: session closed", core.ErrToolTransport)
	}
	if known != nil && !known[name] {
		return core.ToolOutput{}, fmt.Errorf("unknown tool: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	cctx, cancel := s.callContext(ctx)
	defer cancel()
	res, err := s.client.CallTool(cctx, req)
	if err != nil {
		return core.ToolOutput{}, fmt.Errorf("call %s: %w", name, s.classify(ctx, cctx, err))
	}
	parts := make([]string, 0, len(res.Content))
	for _, item := range res.Content {
		switch c := item.(type) {
		case mcpgo.TextContent:
			parts = append(parts, c.Text)
		case *mcpgo.TextContent:
			parts = append(parts, c.Text)
		}
	}
	return core.ToolOutput{Text: strings.Join(parts, "\n"), IsError: res.IsError}, nil
}

// Close releases the connection. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.client.Close()
	})
	if errors.Is(s.closeErr, io.ErrClosedPipe) || errors.Is(s.closeErr, os.ErrClosed) {
		return nil
	}
	return s.closeErr
}
