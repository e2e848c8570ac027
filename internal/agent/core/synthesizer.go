package core

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/models"
)

// Synthesizer turns gathered research into a markdown itinerary.
type Synthesizer struct {
	agent  Agent
	tools  ToolLauncher
	logger *zap.Logger
}

func NewSynthesizer(agent Agent, tools ToolLauncher, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{agent: agent, tools: tools, logger: logger.Named("synth")}
}

// Synthesize returns the agent's final output verbatim.
func (s *Synthesizer) Synthesize(ctx context.Context, req models.ItineraryRequest, data models.ProcessedData) (string, error) {
	ctx, span := orchestratorTracer.Start(ctx, "itinerary.synthesize",
		trace.WithAttributes(
			attribute.String("itinerary.location", req.Location),
			attribute.Int("context.bytes", len(data.CombinedContext)),
		),
	)
	defer span.End()

	res, err := invokeWithTools(ctx, s.tools, s.agent, s.logger, StageSynthesize, BuildSynthesisPrompt(req, data))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("itinerary.bytes", len(res.Output)))
	return res.Output, nil
}
