package cache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var (
	cacheMetricsOnce sync.Once
	cacheLookups     otelmetric.Int64Counter
	cacheWrites      otelmetric.Int64Counter
)

func initCacheMetrics() {
	meter := otel.Meter("itinerary/cache")
	var err error
	cacheLookups, err = meter.Int64Counter(
		"itinerary_cache_lookups_total",
		otelmetric.WithDescription("Result cache lookups by result (hit, miss, variant_mismatch, error)"),
	)
	if err != nil {
		zap.L().Warn("cache metrics init", zap.String("metric", "itinerary_cache_lookups_total"), zap.Error(err))
	}
	cacheWrites, err = meter.Int64Counter(
		"itinerary_cache_writes_total",
		otelmetric.WithDescription("Result cache writes by outcome"),
	)
	if err != nil {
		zap.L().Warn("cache metrics init", zap.String("metric", "itinerary_cache_writes_total"), zap.Error(err))
	}
}

func recordLookup(ctx context.Context, result string) {
	cacheMetricsOnce.Do(initCacheMetrics)
	if cacheLookups != nil {
		cacheLookups.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("result", result)))
	}
}

func recordWrite(ctx context.Context, err error) {
	cacheMetricsOnce.Do(initCacheMetrics)
	if cacheWrites == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	cacheWrites.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}
