// Package metrics counts synchronizer activity through OpenTelemetry. The
// CLI collects the counters in-process and logs their totals on exit; an
// embedding program may install its own provider instead.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/julianstephens/surgisync/internal/logger"
)

const meterName = "github.com/julianstephens/surgisync"

var (
	AttrBucket  = attribute.Key("bucket")
	AttrReason  = attribute.Key("reason")
	AttrOutcome = attribute.Key("outcome")
)

// Recorder holds the synchronizer counters. The zero value drops everything.
type Recorder struct {
	persistAttempts metric.Int64Counter
	persistFailures metric.Int64Counter
	resyncs         metric.Int64Counter
	publishAttempts metric.Int64Counter
}

// New builds the counters on provider. Counters that fail to register
// are logged and left nil.
func New(provider metric.MeterProvider) *Recorder {
	meter := provider.Meter(meterName)
	r := &Recorder{}
	r.persistAttempts = counter(meter, "surgisync.persist.attempts", "Task list writes sent to the backend")
	r.persistFailures = counter(meter, "surgisync.persist.failures", "Task list writes that failed")
	r.resyncs = counter(meter, "surgisync.resyncs", "Full reloads triggered by a failed write")
	r.publishAttempts = counter(meter, "surgisync.publish.attempts", "Plan publish calls by outcome")
	return r
}

// Global builds a recorder on the process-wide provider.
func Global() *Recorder {
	return New(otel.GetMeterProvider())
}

// Session is an in-process provider whose counters are read on Flush.
type Session struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	Recorder *Recorder
}

// Install registers a manual-reader provider as the global one.
func Install() *Session {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return &Session{provider: provider, reader: reader, Recorder: New(provider)}
}

// Totals sums every int64 counter by name.
func (s *Session) Totals(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out[m.Name] += dp.Value
			}
		}
	}
	return out, nil
}

// Flush logs the non-zero totals and shuts the provider down.
func (s *Session) Flush(ctx context.Context) {
	totals, err := s.Totals(ctx)
	if err != nil {
		logger.Warn("failed to collect metrics", "error", err)
	}
	for name, v := range totals {
		if v > 0 {
			logger.Debug("metric total", "name", name, "value", v)
		}
	}
	if err := s.provider.Shutdown(ctx); err != nil {
		logger.Warn("failed to shut down meter provider", "error", err)
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		logger.Warn("failed to create counter", "name", name, "error", err)
		return nil
	}
	return c
}

func add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (r *Recorder) PersistAttempt(ctx context.Context, bucket string) {
	if r == nil {
		return
	}
	add(ctx, r.persistAttempts, AttrBucket.String(bucket))
}

func (r *Recorder) PersistFailure(ctx context.Context, bucket string) {
	if r == nil {
		return
	}
	add(ctx, r.persistFailures, AttrBucket.String(bucket))
}

func (r *Recorder) Resync(ctx context.Context, reason string) {
	if r == nil {
		return
	}
	add(ctx, r.resyncs, AttrReason.String(reason))
}

func (r *Recorder) PublishAttempt(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	add(ctx, r.publishAttempts, AttrOutcome.String(outcome))
}
