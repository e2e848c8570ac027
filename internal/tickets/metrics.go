package tickets

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
	ticketMetricsOnce sync.Once
	submitCounter     otelmetric.Int64Counter
	jobCounter        otelmetric.Int64Counter
	jobDuration       otelmetric.Float64Histogram
)

func initTicketMetrics() {
	meter := otel.Meter("itinerary/tickets")
	var err error
	submitCounter, err = meter.Int64Counter(
		"itinerary_requests_total",
		otelmetric.WithDescription("Submitted itinerary requests by path (cached, scheduled)"),
	)
	if err != nil {
		zap.L().Warn("tickets metrics init", zap.String("metric", "itinerary_requests_total"), zap.Error(err))
	}
	jobCounter, err = meter.Int64Counter(
		"itinerary_jobs_total",
		otelmetric.WithDescription("Background itinerary jobs by final status"),
	)
	if err != nil {
		zap.L().Warn("tickets metrics init", zap.String("metric", "itinerary_jobs_total"), zap.Error(err))
	}
	jobDuration, err = meter.Float64Histogram(
		"itinerary_job_seconds",
		otelmetric.WithDescription("Background itinerary job duration"),
		otelmetric.WithUnit("s"),
	)
	if err != nil {
		zap.L().Warn("tickets metrics init", zap.String("metric", "itinerary_job_seconds"), zap.Error(err))
	}
}

func recordSubmit(ctx context.Context, path string) {
	ticketMetricsOnce.Do(initTicketMetrics)
	if submitCounter != nil {
		submitCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("path", path)))
	}
}

func recordJob(ctx context.Context, err error, elapsed time.Duration) {
	ticketMetricsOnce.Do(initTicketMetrics)
	status := "completed"
	if err != nil {
		status = "error"
	}
	attrs := otelmetric.WithAttributes(attribute.String("status", status))
	if jobCounter != nil {
		jobCounter.Add(ctx, 1, attrs)
	}
	if jobDuration != nil {
		jobDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
