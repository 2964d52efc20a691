// Package obs wires OpenTelemetry tracing and metrics for one PDF Hunter
// run. Grounded on the teacher's serve/tracer.go (TracerProvider/Tracer
// construction) and eval/otel.go (instrument creation and graceful
// nil-handling when OTel is not configured).
//
// The teacher's tracer exports spans to a sibling orchestrator process
// over a callback client; that transport has no analogue here since this
// module has no orchestrator-to-orchestrator boundary, and no OTLP
// exporter library appears anywhere in the retrieval pack's go.mod files.
// Spans are instead exported into the same per-session JSONL sink every
// other structured log record already goes to (session.Sink), which keeps
// OTel a real, exercised dependency without fabricating an external
// collector this deployment does not have. Metrics are recorded on a
// MeterProvider with no reader (see NewMeterProvider), so they are not
// written to the sink or anywhere else.
package obs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/goreliks/pdf-hunter-go/session"
)

const serviceName = "pdf-hunter"

// NewTracerProvider builds a TracerProvider whose spans are exported as
// structured log events on sink, one per completed span. Mirrors the
// teacher's NewProxyTracerProvider: a resource carrying the service name,
// a SimpleSpanProcessor for immediate (unbatched) export, falling back to
// resource.Default() if resource construction fails.
func NewTracerProvider(sink *session.Sink, sessionID string) *sdktrace.TracerProvider {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		res = resource.Default()
	}

	exporter := &sinkExporter{logger: sink.For("Orchestrator", sessionID)}
	processor := sdktrace.NewSimpleSpanProcessor(exporter)

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
	)
}

// NewTracer returns a tracer from tp, named the same as the service.
func NewTracer(tp *sdktrace.TracerProvider) trace.Tracer {
	return tp.Tracer(serviceName)
}

// sinkExporter implements sdktrace.SpanExporter by writing one log event
// per span to a session.Sink-bound logger, the same destination every
// other node-completion record in the run goes to.
type sinkExporter struct {
	logger *slog.Logger
}

func (e *sinkExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		level := slog.LevelInfo
		msg := span.Name()
		if span.Status().Code == codes.Error {
			level = session.LevelCritical
			msg = fmt.Sprintf("%s: %s", span.Name(), span.Status().Description)
		}
		session.Event(ctx, e.logger, level, span.Name(), "span",
			msg,
			slog.Int64("duration_ms", span.EndTime().Sub(span.StartTime()).Milliseconds()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
			slog.String("trace_id", span.SpanContext().TraceID().String()),
		)
	}
	return nil
}

func (e *sinkExporter) Shutdown(ctx context.Context) error { return nil }

// NewMeterProvider returns a MeterProvider with no registered reader: no
// ecosystem metrics backend (Prometheus, OTLP) appears in the retrieval
// pack, so this keeps the Metrics instruments created below real and
// exercised without inventing an export destination. A caller that wants
// periodic export can still register a reader with
// sdkmetric.WithReader before passing the provider's Meter to NewMetrics.
func NewMeterProvider() *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider()
}

// Metrics holds the run-level instruments every orchestrator step records
// against, grounded on eval/otel.go's otelMetrics (histogram per measured
// quantity, counter per occurrence).
type Metrics struct {
	nodeDuration metric.Float64Histogram
	nodeCount    metric.Int64Counter
	errorCount   metric.Int64Counter
}

// NewMetrics creates the instruments against meter. A nil meter is valid
// and yields a Metrics whose RecordNode calls are no-ops, matching
// eval.go's graceful "OTel not configured" handling.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return &Metrics{}, nil
	}

	m := &Metrics{}
	var err error

	m.nodeDuration, err = meter.Float64Histogram("pdfhunter.node.duration",
		metric.WithDescription("Node execution duration in milliseconds"), metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create node duration histogram: %w", err)
	}

	m.nodeCount, err = meter.Int64Counter("pdfhunter.node.count",
		metric.WithDescription("Number of graph node invocations"), metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("create node count counter: %w", err)
	}

	m.errorCount, err = meter.Int64Counter("pdfhunter.node.errors",
		metric.WithDescription("Number of node invocations that returned a non-nil error"), metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("create node error counter: %w", err)
	}

	return m, nil
}

// RecordNode records one node invocation's duration and outcome. agent and
// node are attached as attributes so per-agent/per-node breakdowns are
// possible downstream. A nil Metrics or unconfigured instrument set is a
// silent no-op.
func (m *Metrics) RecordNode(ctx context.Context, agent, node string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("node", node),
	)
	if m.nodeDuration != nil {
		m.nodeDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
	if m.nodeCount != nil {
		m.nodeCount.Add(ctx, 1, attrs)
	}
	if failed && m.errorCount != nil {
		m.errorCount.Add(ctx, 1, attrs)
	}
}
