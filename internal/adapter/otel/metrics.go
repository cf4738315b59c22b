package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "settingsadmin"

// Metrics holds the settingsadmin metric instruments.
type Metrics struct {
	CacheHits     metric.Int64Counter
	CacheMisses   metric.Int64Counter
	Invalidations metric.Int64Counter
	Mutations     metric.Int64Counter
	FetchDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments on mp, or on the global
// provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CacheHits, err = meter.Int64Counter("settingsadmin.query.cache_hits",
		metric.WithDescription("Reads served from the query cache"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("settingsadmin.query.cache_misses",
		metric.WithDescription("Reads that went to the settings API"))
	if err != nil {
		return nil, err
	}

	m.Invalidations, err = meter.Int64Counter("settingsadmin.query.invalidations",
		metric.WithDescription("Namespace invalidations, local and remote"))
	if err != nil {
		return nil, err
	}

	m.Mutations, err = meter.Int64Counter("settingsadmin.query.mutations",
		metric.WithDescription("Create, update and delete calls by outcome"))
	if err != nil {
		return nil, err
	}

	m.FetchDuration, err = meter.Float64Histogram("settingsadmin.query.fetch_duration_seconds",
		metric.WithDescription("Settings API fetch latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordMutation counts one write by operation and outcome. Nil-safe.
func (m *Metrics) RecordMutation(ctx context.Context, op string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

// RecordLookup counts a cache hit or miss for the given query kind. Nil-safe.
func (m *Metrics) RecordLookup(ctx context.Context, kind string, hit bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	if hit {
		m.CacheHits.Add(ctx, 1, attrs)
		return
	}
	m.CacheMisses.Add(ctx, 1, attrs)
}

// RecordFetch observes an API fetch duration. Nil-safe.
func (m *Metrics) RecordFetch(ctx context.Context, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordInvalidation counts a namespace invalidation. Nil-safe.
func (m *Metrics) RecordInvalidation(ctx context.Context, namespace string, remote bool) {
	if m == nil {
		return
	}
	m.Invalidations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.Bool("remote", remote),
	))
}
