package mcp

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// FetchToolName is the only tool exposed by the server.
const FetchToolName = "fetch"

const (
	defaultMaxLength = 5000
	maxMaxLength     = 1000000
)

func fetchTool() mcpgo.Tool {
	return mcpgo.NewTool(FetchToolName,
		mcpgo.WithDescription("Fetches a URL from the internet and optionally extracts its contents as readable text.\n\n"+
			"Use this tool to read web pages while researching. Long pages are returned in chunks; "+
			"call again with start_index to continue reading."),
		mcpgo.WithString("url",
			mcpgo.Required(),
			mcpgo.Description("URL to fetch"),
		),
		mcpgo.WithNumber("max_length",
			mcpgo.Description("Maximum number of characters to return."),
			mcpgo.DefaultNumber(defaultMaxLength),
			mcpgo.Min(1),
			mcpgo.Max(maxMaxLength-1),
		),
		mcpgo.WithNumber("start_index",
			mcpgo.Description("Return output starting at this character index."),
			mcpgo.DefaultNumber(0),
			mcpgo.Min(0),
		),
		mcpgo.WithBoolean("raw",
			mcpgo.Description("Get the actual HTML content of the requested page, without simplification."),
			mcpgo.DefaultBool(false),
		),
	)
}

type fetchArgs struct {
	URL        string
	MaxLength  int
	StartIndex int
	Raw        bool
}

func parseFetchArgs(args map[string]any) (fetchArgs, error) {
	out := fetchArgs{
		URL:        strings.TrimSpace(str(args["url"])),
		MaxLength:  asInt(args["max_length"], defaultMaxLength),
		StartIndex: asInt(args["start_index"], 0),
		Raw:        asBool(args["raw"]),
	}
	if out.URL == "" {
		return fetchArgs{}, fmt.Errorf("url is required")
	}
	if out.MaxLength <= 0 || out.MaxLength >= maxMaxLength {
		return fetchArgs{}, fmt.Errorf("max_length must be in (0, %d)", maxMaxLength)
	}
	if out.StartIndex < 0 {
		return fetchArgs{}, fmt.Errorf("start_index must be >= 0")
	}
	return out, nil
}

// handleFetch serves tools/call for fetch. Bad arguments and fetch failures
// are tool errors (isError) so the model can correct itself or move on.
func (s *Server) handleFetch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	args, err := parseFetchArgs(req.GetArguments())
	if err != nil {
		return mcpgo.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	res, err := s.fetcher.Fetch(ctx, args.URL, args.Raw)
	if err != nil {
		s.logger.Info("fetch failed", zap.String("url", args.URL), zap.Error(err))
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	s.logger.Debug("fetched",
		zap.String("url", args.URL),
		zap.Int("status", res.Status),
		zap.Int("chars", utf8.RuneCountInString(res.Text)),
		zap.Int("render_ms", res.RenderMS),
	)

	prefix := ""
	if !args.Raw && !res.Simplified {
		prefix = fmt.Sprintf("Content type %s cannot be simplified to readable text, but here is the raw content:\n", res.ContentType)
	}
	body := paginate(res.Text, args.StartIndex, args.MaxLength)
	return mcpgo.NewToolResultText(fmt.Sprintf("%sContents of %s:\n%s", prefix, args.URL, body)), nil
}

// paginate returns the window [start, start+max) of content in characters,
// with a continuation hint when more remains.
func paginate(content string, start, max int) string {
	runes := []rune(content)
	if start >= len(runes) {
		return "<error>No more content available.</error>"
	}
	end := start + max
	if end > len(runes) {
		end = len(runes)
	}
	window := string(runes[start:end])
	if end-start == max && end < len(runes) {
		window += fmt.Sprintf("\n\n<error>Content truncated. Call the fetch tool with a start_index of %d to get more content.</error>", end)
	}
	return window
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt(v any, def int) int {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return def
		}
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		var i int
		if _, err := fmt.Sscanf(n, "%d", &i); err == nil {
			return i
		}
	}
	return def
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}
