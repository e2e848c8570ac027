package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// invokeWithTools opens a tool session, runs the agent once and always tears
// the session down. Any failure is returned as a *ToolInvocationError.
func invokeWithTools(ctx context.Context, launcher ToolLauncher, agent Agent, logger *zap.Logger, stage, prompt string) (RunResult, error) {
	sess, err := launcher.Open(ctx)
	if err != nil {
		recordAgentRun(ctx, stage, 0, err)
		return RunResult{}, &ToolInvocationError{Stage: stage, Op: OpOpenSession, Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("tool session close failed", zap.String("stage", stage), zap.Error(cerr))
		}
	}()

	start := time.Now()
	res, err := agent.Run(ctx, prompt, sess)
	elapsed := time.Since(start)
	recordAgentRun(ctx, stage, elapsed, err)
	if err != nil {
		return RunResult{}, &ToolInvocationError{Stage: stage, Op: OpRunAgent, Err: err}
	}
	logger.Debug("agent run complete",
		zap.String("stage", stage),
		zap.String("model", res.Model),
		zap.Int("tool_calls", res.ToolCalls),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("completion_tokens", res.CompletionTokens),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}
