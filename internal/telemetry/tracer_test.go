package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestNewProvider_Disabled(t *testing.T) {
	cfg := Config{
		Enabled:      false,
		ServiceName:  "test-service",
		ExporterType: "grpc",
	}

	provider, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if provider.tp != nil {
		t.Error("expected noop provider (tp == nil)")
	}

	tracer := otel.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("expected noop tracer span to be non-recording")
	}
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: "invalid",
	}

	_, err := NewProvider(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for invalid exporter type")
	}

	const want = "unsupported telemetry exporter type: invalid"
	if err.Error() != want {
		t.Errorf("expected error message %q, got %q", want, err.Error())
	}
}

func TestNewProvider_SamplingRates(t *testing.T) {
	for _, rate := range []float64{1.0, 0.0, 0.5} {
		cfg := Config{
			// Enabled: false keeps this test offline. NewProvider returns
			// before the sampler switch in that case, so this only checks
			// that every rate is accepted without error.
			Enabled:      false,
			ServiceName:  "test-service",
			ExporterType: "grpc",
			SamplingRate: rate,
		}

		provider, err := NewProvider(context.Background(), cfg)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if provider == nil {
			t.Fatal("expected non-nil provider")
		}
	}
}

func TestProvider_Shutdown(t *testing.T) {
	provider := &Provider{}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on noop shutdown, got: %v", err)
	}
}

func TestProvider_ShutdownCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &Provider{}
	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("expected no error on noop shutdown with canceled context, got: %v", err)
	}
}

func TestTracer(t *testing.T) {
	cfg := Config{Enabled: false, ServiceName: "test-service"}
	if _, err := NewProvider(context.Background(), cfg); err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	tracer := Tracer("test-tracer")
	if tracer == nil {
		t.Fatal("expected non-nil tracer")
	}

	ctx, span := tracer.Start(context.Background(), "test-span")
	span.End()
	if ctx == nil {
		t.Fatal("expected non-nil context from span start")
	}
}

func TestProvider_ConcurrentShutdown(t *testing.T) {
	provider := &Provider{}

	done := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = provider.Shutdown(ctx)
			done <- struct{}{}
		}()
	}

	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for concurrent shutdown")
		}
	}
}
