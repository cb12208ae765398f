// Package telemetry wires the OpenTelemetry meter used by the turn
// pipeline. Metrics are exported periodically to a rotated local file
// so the demo needs no collector; an OTEL collector can still attach
// via the SDK.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
)

// Metrics bundles the instruments recorded per conversational turn.
type Metrics struct {
	turns       metric.Int64Counter
	detections  metric.Int64Counter
	turnLatency metric.Float64Histogram
}

// Init sets up the meter provider with a file-backed stdout exporter
// and returns the turn metrics plus a shutdown func.
func Init(ctx context.Context) (*Metrics, func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("mindhaven-backend"),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	metricsFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "mindhaven_metrics.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	metricExporter, err := stdoutmetric.New(
		stdoutmetric.WithWriter(metricsFile),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				metricExporter,
				sdkmetric.WithInterval(10*time.Second),
			),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	metrics, err := newMetrics(mp.Meter("mindhaven"))
	if err != nil {
		return nil, nil, err
	}

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Printf("failed to shut down meter provider: %v", err)
		}
	}
	return metrics, shutdown, nil
}

// Disabled returns no-op metrics for runs with telemetry off.
func Disabled() *Metrics {
	metrics, _ := newMetrics(noop.NewMeterProvider().Meter("mindhaven"))
	return metrics
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	turns, err := meter.Int64Counter("therapist.turns",
		metric.WithDescription("completed conversational turns"))
	if err != nil {
		return nil, fmt.Errorf("failed to create turn counter: %w", err)
	}

	detections, err := meter.Int64Counter("therapist.emotion_detections",
		metric.WithDescription("emotion labels attributed to turns"))
	if err != nil {
		return nil, fmt.Errorf("failed to create detection counter: %w", err)
	}

	turnLatency, err := meter.Float64Histogram("therapist.turn_latency_ms",
		metric.WithDescription("end-to-end turn latency in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}

	return &Metrics{turns: turns, detections: detections, turnLatency: turnLatency}, nil
}

// RecordTurn registers one completed turn. Nil receivers are allowed so
// callers never branch on telemetry configuration.
func (m *Metrics) RecordTurn(ctx context.Context, detected emotion.Label, latency time.Duration, failed bool) {
	if m == nil {
		return
	}

	status := attribute.String("status", "ok")
	if failed {
		status = attribute.String("status", "error")
	}

	m.turns.Add(ctx, 1, metric.WithAttributes(status))
	m.detections.Add(ctx, 1, metric.WithAttributes(attribute.String("emotion", string(detected))))
	m.turnLatency.Record(ctx, float64(latency.Milliseconds()), metric.WithAttributes(status))
}
