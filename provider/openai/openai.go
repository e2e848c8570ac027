package openai_provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/internal/agent/core"
)

const systemPrompt = "You are a meticulous travel research assistant. Use the available tools to read web pages when you need facts, and answer exactly in the format the user asks for."

// Options configures a chat-completions agent.
type Options struct {
	APIKey        string
	BaseURL       string
	Model         string
	Temperature   float64
	MaxTokens     int
	MaxToolRounds int
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Agent drives an OpenAI-compatible chat-completions endpoint with function
// calling, executing tool calls against a core.ToolSession.
type Agent struct {
	client        *openai.Client
	model         string
	temperature   float32
	maxTokens     int
	maxToolRounds int
	timeout       time.Duration
	logger        *zap.Logger
}

// NewAgent creates a new agent client
func NewAgent(opts Options, logger *zap.Logger) (*Agent, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai agent: api key is required")
	}
	if opts.Model == "" {
		return nil, errors.New("openai agent: model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	rounds := opts.MaxToolRounds
	if rounds <= 0 {
		rounds = 8
	}
	return &Agent{
		client:        openai.NewClientWithConfig(cfg),
		model:         opts.Model,
		temperature:   float32(opts.Temperature),
		maxTokens:     opts.MaxTokens,
		maxToolRounds: rounds,
		timeout:       opts.Timeout,
		logger:        logger.Named("llm"),
	}, nil
}

// Run sends the prompt and services tool calls until the model answers in
// plain text. After maxToolRounds the model is asked to answer without tools.
func (a *Agent) Run(ctx context.Context, prompt string, tools core.ToolSession) (core.RunResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var (
		defs  []openai.Tool
		names map[string]string
	)
	if tools != nil {
		list, err := tools.ListTools(ctx)
		if err != nil {
			return core.RunResult{}, fmt.Errorf("list tools: %w", err)
		}
		defs, names = toolDefinitions(list)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	result := core.RunResult{Model: a.model}

	for round := 0; ; round++ {
		req := openai.ChatCompletionRequest{
			Model:       a.model,
			Messages:    messages,
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
		}
		if len(defs) > 0 {
			req.Tools = defs
			if round >= a.maxToolRounds {
				req.ToolChoice = "none"
			}
		}
		resp, err := a.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return core.RunResult{}, fmt.Errorf("chat completion: %w", err)
		}
		result.PromptTokens += resp.Usage.PromptTokens
		result.CompletionTokens += resp.Usage.CompletionTokens
		if resp.Model != "" {
			result.Model = resp.Model
		}
		if len(resp.Choices) == 0 {
			return core.RunResult{}, errors.New("chat completion returned no choices")
		}
		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 || len(defs) == 0 || round >= a.maxToolRounds {
			result.Output = msg.Content
			return result, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			content, err := a.execute(ctx, tools, names, call)
			if err != nil {
				return core.RunResult{}, err
			}
			result.ToolCalls++
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}
}

// execute runs one tool call. Problems the model can correct (bad arguments,
// unknown tool, tool-reported errors) come back as text; transport failures abort.
func (a *Agent) execute(ctx context.Context, tools core.ToolSession, names map[string]string, call openai.ToolCall) (string, error) {
	name, ok := names[call.Function.Name]
	if !ok {
		return fmt.Sprintf("error: unknown tool %q", call.Function.Name), nil
	}
	args := map[string]any{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("error: arguments are not a JSON object: %v", err), nil
		}
	}
	start := time.Now()
	out, err := tools.CallTool(ctx, name, args)
	if err != nil {
		if errors.Is(err, core.ErrToolTransport) || ctx.Err() != nil {
			return "", fmt.Errorf("call tool %s: %w", name, err)
		}
		a.logger.Debug("tool call rejected", zap.String("tool", name), zap.Error(err))
		return "error: " + err.Error(), nil
	}
	a.logger.Debug("tool call",
		zap.String("tool", name),
		zap.Bool("is_error", out.IsError),
		zap.Int("bytes", len(out.Text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if out.IsError {
		return "error: " + out.Text, nil
	}
	return out.Text, nil
}

var invalidToolChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// toolDefinitions converts tool descriptors into function definitions. Names
// are sanitised for the API; the returned map resolves them back.
func toolDefinitions(list []core.Tool) ([]openai.Tool, map[string]string) {
	defs := make([]openai.Tool, 0, len(list))
	names := make(map[string]string, len(list))
	for _, t := range list {
		fn := invalidToolChars.ReplaceAllString(t.Name, "_")
		if fn == "" {
			continue
		}
		params := t.InputSchema
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		names[fn] = t.Name
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return defs, names
}
