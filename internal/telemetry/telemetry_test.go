/*-------------------------------------------------------------------------
 *
 * jobs-feed - Telemetry Tests
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newProviders(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider, *sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	return exporter, tp, reader, mp
}

func TestInvocation_Success(t *testing.T) {
	exporter, tp, reader, mp := newProviders(t)
	inst := New("FetchJobsDataLimited", WithTracerProvider(tp), WithMeterProvider(mp))

	ctx, inv := inst.Start(context.Background(), 25)
	if !trace.SpanContextFromContext(ctx).IsValid() {
		t.Error("context should carry the invocation span")
	}
	inv.End(5, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "FetchJobsDataLimited" {
		t.Errorf("span name = %q, want FetchJobsDataLimited", span.Name)
	}
	if span.Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status.Code)
	}
	assertIntAttr(t, span.Attributes, AttrLimit, 25)
	assertIntAttr(t, span.Attributes, AttrRecordsFetched, 5)

	metrics := collect(t, reader)
	assertMetricExists(t, metrics, "jobs.fetch.invocations")
	assertMetricExists(t, metrics, "jobs.fetch.records")
	assertMetricExists(t, metrics, "jobs.fetch.duration")
	if _, ok := metrics["jobs.fetch.failures"]; ok {
		t.Error("failures should not be recorded on success")
	}
}

func TestInvocation_Error(t *testing.T) {
	exporter, tp, reader, mp := newProviders(t)
	inst := New("FetchJobsDataLimited", WithTracerProvider(tp), WithMeterProvider(mp))

	_, inv := inst.Start(context.Background(), 10)
	inv.End(0, errors.New("relation \"jobs\" does not exist"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status code, got %v", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected error event to be recorded")
	}
	for _, a := range spans[0].Attributes {
		if a.Key == AttrRecordsFetched {
			t.Error("records_fetched should not be set on failure")
		}
	}

	metrics := collect(t, reader)
	assertMetricExists(t, metrics, "jobs.fetch.failures")
}

func TestInstruments_DefaultProviders(t *testing.T) {
	inst := New("FetchJobsDataLimited")
	_, inv := inst.Start(context.Background(), 1)
	inv.End(1, nil)
}

func assertIntAttr(t *testing.T, attrs []attribute.KeyValue, key attribute.Key, expected int64) {
	t.Helper()
	for _, a := range attrs {
		if a.Key == key {
			if a.Value.AsInt64() != expected {
				t.Errorf("attr %s = %d, want %d", key, a.Value.AsInt64(), expected)
			}
			return
		}
	}
	t.Errorf("attribute %q not found", key)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	result := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			result[m.Name] = m
		}
	}
	return result
}

func assertMetricExists(t *testing.T, metrics map[string]metricdata.Metrics, name string) {
	t.Helper()
	if _, ok := metrics[name]; !ok {
		t.Errorf("metric %q not found in collected metrics", name)
	}
}
