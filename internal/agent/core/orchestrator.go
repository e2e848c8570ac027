package core

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/models"
)

var orchestratorTracer trace.Tracer = otel.Tracer("itinerary/internal/agent/orchestrator")

// EvidenceGatherer is the research stage.
type EvidenceGatherer interface {
	Gather(ctx context.Context, req models.ItineraryRequest) (models.ProcessedData, error)
}

// ItinerarySynthesizer is the writing stage.
type ItinerarySynthesizer interface {
	Synthesize(ctx context.Context, req models.ItineraryRequest, data models.ProcessedData) (string, error)
}

// Orchestrator runs gather then synthesize for one request.
type Orchestrator struct {
	gatherer    EvidenceGatherer
	synthesizer ItinerarySynthesizer
	logger      *zap.Logger
}

func NewOrchestrator(gatherer EvidenceGatherer, synthesizer ItinerarySynthesizer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{gatherer: gatherer, synthesizer: synthesizer, logger: logger.Named("orch")}
}

// New wires both stages onto one agent and tool launcher. Each stage opens
// its own tool session.
func New(agent Agent, tools ToolLauncher, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewOrchestrator(NewGatherer(agent, tools, logger), NewSynthesizer(agent, tools, logger), logger)
}

// Process returns the itinerary markdown. Errors from either stage are
// returned as is; synthesis is never attempted after a failed gather.
func (o *Orchestrator) Process(ctx context.Context, req models.ItineraryRequest) (string, error) {
	ctx, span := orchestratorTracer.Start(ctx, "itinerary.process",
		trace.WithAttributes(
			attribute.String("itinerary.location", req.Location),
			attribute.String("itinerary.category", req.Category),
			attribute.Int("itinerary.days", req.Days),
		),
	)
	defer span.End()
	start := time.Now()

	data, err := o.gatherer.Gather(ctx, req)
	if err != nil {
		o.fail(ctx, span, req, "gather", err)
		return "", err
	}
	span.AddEvent("gather.complete", trace.WithAttributes(attribute.Int("sources.count", len(data.Sources))))

	itinerary, err := o.synthesizer.Synthesize(ctx, req, data)
	if err != nil {
		o.fail(ctx, span, req, "synthesize", err)
		return "", err
	}
	recordGeneration(ctx, nil)
	o.logger.Info("itinerary generated",
		zap.String("location", req.Location),
		zap.String("category", req.Category),
		zap.Int("days", req.Days),
		zap.Int("sources", len(data.Sources)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return itinerary, nil
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, req models.ItineraryRequest, stage string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	recordGeneration(ctx, err)
	o.logger.Error("itinerary generation failed",
		zap.String("stage", stage),
		zap.String("location", req.Location),
		zap.Error(err),
	)
}
