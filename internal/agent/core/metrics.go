package core

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var (
	agentMetricsOnce  sync.Once
	agentRuns         otelmetric.Int64Counter
	agentRunDuration  otelmetric.Float64Histogram
	gatherFallbacks   otelmetric.Int64Counter
	gatheredSources   otelmetric.Int64Histogram
	itineraryOutcomes otelmetric.Int64Counter
)

func initAgentMetrics() {
	meter := otel.Meter("itinerary/agent/core")
	var err error
	agentRuns, err = meter.Int64Counter(
		"itinerary_agent_runs_total",
		otelmetric.WithDescription("Tool-augmented agent invocations by stage and outcome"),
	)
	if err != nil {
		zap.L().Warn("agent metrics init", zap.String("metric", "itinerary_agent_runs_total"), zap.Error(err))
	}
	agentRunDuration, err = meter.Float64Histogram(
		"itinerary_agent_run_seconds",
		otelmetric.WithDescription("Wall time of one agent run"),
		otelmetric.WithUnit("s"),
	)
	if err != nil {
		zap.L().Warn("agent metrics init", zap.String("metric", "itinerary_agent_run_seconds"), zap.Error(err))
	}
	gatherFallbacks, err = meter.Int64Counter(
		"itinerary_gather_fallback_total",
		otelmetric.WithDescription("Gather runs whose output had to be wrapped as a single unstructured source"),
	)
	if err != nil {
		zap.L().Warn("agent metrics init", zap.String("metric", "itinerary_gather_fallback_total"), zap.Error(err))
	}
	gatheredSources, err = meter.Int64Histogram(
		"itinerary_gather_sources",
		otelmetric.WithDescription("Number of sources returned by one gather run"),
	)
	if err != nil {
		zap.L().Warn("agent metrics init", zap.String("metric", "itinerary_gather_sources"), zap.Error(err))
	}
	itineraryOutcomes, err = meter.Int64Counter(
		"itinerary_generations_total",
		otelmetric.WithDescription("End-to-end itinerary generations by outcome"),
	)
	if err != nil {
		zap.L().Warn("agent metrics init", zap.String("metric", "itinerary_generations_total"), zap.Error(err))
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func recordAgentRun(ctx context.Context, stage string, elapsed time.Duration, err error) {
	agentMetricsOnce.Do(initAgentMetrics)
	attrs := otelmetric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome(err)),
	)
	if agentRuns != nil {
		agentRuns.Add(ctx, 1, attrs)
	}
	if agentRunDuration != nil && elapsed > 0 {
		agentRunDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func recordGather(ctx context.Context, sources int, fallback bool) {
	agentMetricsOnce.Do(initAgentMetrics)
	if gatheredSources != nil {
		gatheredSources.Record(ctx, int64(sources))
	}
	if fallback && gatherFallbacks != nil {
		gatherFallbacks.Add(ctx, 1)
	}
}

func recordGeneration(ctx context.Context, err error) {
	agentMetricsOnce.Do(initAgentMetrics)
	if itineraryOutcomes != nil {
		itineraryOutcomes.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome(err))))
	}
}
