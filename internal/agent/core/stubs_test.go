package core

import (
	"context"
	"errors"
	"sync"
)

// scriptedAgent replays canned outputs in order and records every prompt.
type scriptedAgent struct {
	mu      sync.Mutex
	outputs []string
	errs    []error
	prompts []string
}

func (a *scriptedAgent) Run(ctx context.Context, prompt string, tools ToolSession) (RunResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := len(a.prompts)
	a.prompts = append(a.prompts, prompt)
	if idx < len(a.errs) && a.errs[idx] != nil {
		return RunResult{}, a.errs[idx]
	}
	if idx >= len(a.outputs) {
		return RunResult{}, errors.New("scripted agent exhausted")
	}
	return RunResult{Output: a.outputs[idx], Model: "scripted"}, nil
}

func (a *scriptedAgent) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.prompts)
}

type stubSession struct {
	closed *int
}

func (s stubSession) ListTools(context.Context) ([]Tool, error) {
	return []Tool{{Name: "fetch"}}, nil
}

func (s stubSession) CallTool(context.Context, string, map[string]any) (ToolOutput, error) {
	return ToolOutput{Text: "page"}, nil
}

func (s stubSession) Close() error {
	*s.closed++
	return nil
}

// stubLauncher counts sessions so tests can check teardown.
type stubLauncher struct {
	openErr error
	opened  int
	closed  int
}

func (l *stubLauncher) Open(context.Context) (ToolSession, error) {
	if l.openErr != nil {
		return nil, l.openErr
	}
	l.opened++
	return stubSession{closed: &l.closed}, nil
}
