package obs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/goreliks/pdf-hunter-go/session"
)

func TestTracerProviderExportsSpansToSink(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "session.jsonl")
	sink, err := session.Open(logPath)
	if err != nil {
		t.Fatalf("session.Open failed: %v", err)
	}

	tp := NewTracerProvider(sink, "session-123")
	tracer := NewTracer(tp)

	_, span := tracer.Start(context.Background(), "extract_pdf_images")
	span.End()

	if err := sink.Close(); err != nil {
		t.Fatalf("sink.Close failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "extract_pdf_images") {
		t.Errorf("expected span name in exported log, got: %s", data)
	}
	if !strings.Contains(string(data), "session-123") {
		t.Errorf("expected session_id in exported log, got: %s", data)
	}
}

func TestNewMetricsWithNilMeterIsNoop(t *testing.T) {
	m, err := NewMetrics(nil)
	if err != nil {
		t.Fatalf("NewMetrics(nil) returned error: %v", err)
	}
	m.RecordNode(context.Background(), "Orchestrator", "triage", time.Millisecond, true)
}

func TestNilMetricsRecordNodeIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordNode(context.Background(), "Orchestrator", "triage", time.Millisecond, false)
}

func TestNewMetricsCreatesInstruments(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	meter := mp.Meter("test")

	m, err := NewMetrics(meter)
	if err != nil {
		t.Fatalf("NewMetrics returned error: %v", err)
	}
	if m.nodeDuration == nil || m.nodeCount == nil || m.errorCount == nil {
		t.Fatal("expected all three instruments to be created")
	}
	m.RecordNode(context.Background(), "Orchestrator", "analyze_images", 5*time.Millisecond, false)
}
