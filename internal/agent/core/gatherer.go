package core

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/models"
)

// Gatherer runs the research stage: it asks the agent for scored web sources
// and ranks them into a combined context.
type Gatherer struct {
	agent  Agent
	tools  ToolLauncher
	logger *zap.Logger
}

func NewGatherer(agent Agent, tools ToolLauncher, logger *zap.Logger) *Gatherer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gatherer{agent: agent, tools: tools, logger: logger.Named("gather")}
}

// Gather never fails on malformed agent output; it only fails when the tool
// session or agent run fails, with a *ToolInvocationError.
func (g *Gatherer) Gather(ctx context.Context, req models.ItineraryRequest) (models.ProcessedData, error) {
	ctx, span := orchestratorTracer.Start(ctx, "itinerary.gather",
		trace.WithAttributes(
			attribute.String("itinerary.location", req.Location),
			attribute.String("itinerary.category", req.Category),
			attribute.Int("itinerary.days", req.Days),
		),
	)
	defer span.End()

	queries := BuildSearchQueries(req)
	prompt := BuildGatherPrompt(req, queries)
	g.logger.Debug("gathering sources", zap.String("location", req.Location), zap.Int("queries", len(queries)))

	res, err := invokeWithTools(ctx, g.tools, g.agent, g.logger, StageGather, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.ProcessedData{}, err
	}

	parsed := ParseSources(res.Output)
	sources := parsed.Sources
	if !parsed.OK() {
		g.logger.Warn("agent output was not a structured source list; using fallback source",
			zap.Int("output_bytes", len(res.Output)),
			zap.Error(parsed.Err),
		)
		sources = []models.Source{FallbackSource(res.Output)}
	}
	RankSources(sources)
	recordGather(ctx, len(sources), !parsed.OK())

	span.SetAttributes(
		attribute.Int("sources.count", len(sources)),
		attribute.Bool("sources.fallback", !parsed.OK()),
	)
	return models.ProcessedData{
		Sources:         sources,
		CombinedContext: BuildCombinedContext(req, sources),
	}, nil
}
