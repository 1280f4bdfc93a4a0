// Package observe provides application-wide observability primitives for
// interviewd: OpenTelemetry metrics, distributed tracing, and the HTTP
// middleware used by the ops listener.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all interviewd metrics.
const meterName = "github.com/prathish132002/Live-Interview-App-sub000"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
//
// When no SDK meter provider has been registered, the global provider is a
// no-op and recording through any instrument is safe and free.
type Metrics struct {
	// --- Outbound audio pipeline ---

	// BlocksProcessed counts capture blocks pushed through the outbound
	// conditioning pipeline.
	BlocksProcessed metric.Int64Counter

	// FramesSent counts encoded audio frames delivered to the live provider.
	FramesSent metric.Int64Counter

	// FramesDropped counts audio frames discarded before delivery. Use with
	// attribute:
	//   attribute.String("reason", ...)
	FramesDropped metric.Int64Counter

	// --- Inbound audio and playback ---

	// InboundAudioBytes counts bytes of model audio received from the live
	// provider.
	InboundAudioBytes metric.Int64Counter

	// PlaybackScheduled counts audio buffers handed to the playback device.
	PlaybackScheduled metric.Int64Counter

	// PlaybackPending tracks buffers scheduled but not yet played out.
	PlaybackPending metric.Int64UpDownCounter

	// --- Conversation ---

	// TurnsCommitted counts committed conversation turns. Use with attribute:
	//   attribute.String("speaker", ...)
	TurnsCommitted metric.Int64Counter

	// ActiveSessions tracks the number of live interview sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- Latency histograms ---

	// ReportDuration tracks end-of-interview report generation latency. Use
	// with attribute:
	//   attribute.String("status", ...)
	ReportDuration metric.Float64Histogram

	// HTTPRequestDuration tracks ops-listener request processing time. Use
	// with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// reportBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM-backed report generation, which runs seconds rather than milliseconds.
var reportBuckets = []float64{
	0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Outbound pipeline counters.
	if met.BlocksProcessed, err = m.Int64Counter("interviewd.audio.blocks_processed",
		metric.WithDescription("Total capture blocks pushed through the outbound pipeline."),
	); err != nil {
		return nil, err
	}
	if met.FramesSent, err = m.Int64Counter("interviewd.audio.frames_sent",
		metric.WithDescription("Total encoded audio frames delivered to the live provider."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("interviewd.audio.frames_dropped",
		metric.WithDescription("Total audio frames discarded before delivery, by reason."),
	); err != nil {
		return nil, err
	}

	// Inbound audio and playback.
	if met.InboundAudioBytes, err = m.Int64Counter("interviewd.audio.inbound_bytes",
		metric.WithDescription("Total bytes of model audio received from the live provider."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.PlaybackScheduled, err = m.Int64Counter("interviewd.playback.scheduled",
		metric.WithDescription("Total audio buffers handed to the playback device."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackPending, err = m.Int64UpDownCounter("interviewd.playback.pending",
		metric.WithDescription("Audio buffers scheduled but not yet played out."),
	); err != nil {
		return nil, err
	}

	// Conversation counters and gauges.
	if met.TurnsCommitted, err = m.Int64Counter("interviewd.turns.committed",
		metric.WithDescription("Total committed conversation turns by speaker."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("interviewd.active_sessions",
		metric.WithDescription("Number of live interview sessions."),
	); err != nil {
		return nil, err
	}

	// Latency histograms.
	if met.ReportDuration, err = m.Float64Histogram("interviewd.report.duration",
		metric.WithDescription("Latency of end-of-interview report generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(reportBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("interviewd.http.request.duration",
		metric.WithDescription("Ops-listener HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordTurnCommitted is a convenience method that records a committed turn
// with the standard speaker attribute.
func (m *Metrics) RecordTurnCommitted(ctx context.Context, speaker string) {
	m.TurnsCommitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("speaker", speaker)),
	)
}

// RecordFrameDropped is a convenience method that records a dropped frame
// with the standard reason attribute.
func (m *Metrics) RecordFrameDropped(ctx context.Context, reason string) {
	m.FramesDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordPlaybackScheduled is a convenience method that records one buffer
// handed to the playback device: the scheduled counter and the pending gauge
// both move up.
func (m *Metrics) RecordPlaybackScheduled(ctx context.Context) {
	m.PlaybackScheduled.Add(ctx, 1)
	m.PlaybackPending.Add(ctx, 1)
}

// RecordPlaybackDone is a convenience method that records one scheduled
// buffer finishing playout.
func (m *Metrics) RecordPlaybackDone(ctx context.Context) {
	m.PlaybackPending.Add(ctx, -1)
}

// RecordReportDuration is a convenience method that records report
// generation latency with the standard status attribute.
func (m *Metrics) RecordReportDuration(ctx context.Context, seconds float64, status string) {
	m.ReportDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
