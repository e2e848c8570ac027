package core

import (
	"context"
	"errors"
	"fmt"
)

// Stage names used in errors, spans and metrics.
const (
	StageGather     = "gather"
	StageSynthesize = "synthesize"
)

// Operations that can fail while talking to the tool-augmented agent.
const (
	OpOpenSession = "open_session"
	OpRunAgent    = "run_agent"
)

// Tool describes one callable tool advertised by a tool server.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// ToolOutput is the textual result of a tool call. IsError marks failures the
// tool reported itself; those are shown to the model rather than aborting the run.
type ToolOutput struct {
	Text    string
	IsError bool
}

// ToolSession is a live connection to a tool server. Close is always called
// by the owner once the agent run finishes.
type ToolSession interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (ToolOutput, error)
	Close() error
}

// ToolLauncher opens a fresh tool session per agent invocation.
type ToolLauncher interface {
	Open(ctx context.Context) (ToolSession, error)
}

// RunResult is the final answer of one agent run.
type RunResult struct {
	Output           string
	Model            string
	ToolCalls        int
	PromptTokens     int
	CompletionTokens int
}

// Agent is a tool-using language model that turns a prompt into text.
type Agent interface {
	Run(ctx context.Context, prompt string, tools ToolSession) (RunResult, error)
}

// ErrToolTransport marks failures of the tool channel itself (broken pipe,
// dead subprocess). Agents abort on it instead of reporting it to the model.
var ErrToolTransport = errors.New("tool transport failure")

// ToolInvocationError reports a failure to open the tool session or run the
// agent. It reaches callers unchanged through the orchestrator.
type ToolInvocationError struct {
	Stage string
	Op    string
	Err   error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Op, e.Err)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }
