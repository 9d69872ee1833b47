/*-------------------------------------------------------------------------
 *
 * jobs-feed - Telemetry
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package telemetry records a span and metrics for each jobs fetch. With no
// providers configured it uses the OpenTelemetry globals, which are no-ops
// until an SDK is installed.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "jobs-feed/internal/telemetry"

// Attribute keys
const (
	AttrLimit          = attribute.Key("jobs.limit")
	AttrRecordsFetched = attribute.Key("jobs.records_fetched")
	AttrFunction       = attribute.Key("faas.name")
)

// Option configures Instruments
type Option func(*config)

type config struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider sets a custom TracerProvider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

// WithMeterProvider sets a custom MeterProvider. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) { c.meterProvider = mp }
}

// Instruments holds the tracer and meters for one function
type Instruments struct {
	function string
	tracer   trace.Tracer

	invocations metric.Int64Counter
	failures    metric.Int64Counter
	records     metric.Int64Histogram
	duration    metric.Float64Histogram
}

// New creates instruments for the named function.
//
// Recorded instruments:
//   - jobs.fetch.invocations (counter)
//   - jobs.fetch.failures (counter)
//   - jobs.fetch.records (histogram): records returned per invocation
//   - jobs.fetch.duration (histogram, milliseconds)
func New(function string, opts ...Option) *Instruments {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	tp := cfg.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	// Errors only arise from invalid instrument names
	invocations, _ := meter.Int64Counter("jobs.fetch.invocations",
		metric.WithDescription("Number of jobs fetch invocations"),
	)
	failures, _ := meter.Int64Counter("jobs.fetch.failures",
		metric.WithDescription("Number of jobs fetch invocations that returned an error"),
	)
	records, _ := meter.Int64Histogram("jobs.fetch.records",
		metric.WithDescription("Records returned per invocation"),
	)
	duration, _ := meter.Float64Histogram("jobs.fetch.duration",
		metric.WithDescription("Invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		function:    function,
		tracer:      tp.Tracer(instrumentationName),
		invocations: invocations,
		failures:    failures,
		records:     records,
		duration:    duration,
	}
}

// Invocation tracks a single call between Start and End
type Invocation struct {
	inst  *Instruments
	ctx   context.Context
	span  trace.Span
	start time.Time
}

// Start opens the invocation span. The returned context carries the span.
func (i *Instruments) Start(ctx context.Context, limit int) (context.Context, *Invocation) {
	ctx, span := i.tracer.Start(ctx, i.function,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			AttrFunction.String(i.function),
			AttrLimit.Int(limit),
		),
	)

	i.invocations.Add(ctx, 1, metric.WithAttributes(AttrFunction.String(i.function)))

	return ctx, &Invocation{inst: i, ctx: ctx, span: span, start: time.Now()}
}

// End closes the span and records metrics. On error the span status is set
// to Error with the error recorded.
func (inv *Invocation) End(recordsFetched int, err error) {
	attrs := metric.WithAttributes(AttrFunction.String(inv.inst.function))

	durationMS := float64(time.Since(inv.start).Microseconds()) / 1000.0
	inv.inst.duration.Record(inv.ctx, durationMS, attrs)

	if err != nil {
		inv.inst.failures.Add(inv.ctx, 1, attrs)
		inv.span.SetStatus(codes.Error, err.Error())
		inv.span.RecordError(err)
	} else {
		inv.inst.records.Record(inv.ctx, int64(recordsFetched), attrs)
		inv.span.SetAttributes(AttrRecordsFetched.Int(recordsFetched))
		inv.span.SetStatus(codes.Ok, "")
	}

	inv.span.End()
}
