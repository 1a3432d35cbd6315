package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerDefaultsToNoop(t *testing.T) {
	if got := Logger(context.Background()); got != NoopLogger() {
		t.Fatalf("expected noop logger, got %v", got)
	}
	if got := Logger(nil); got != NoopLogger() {
		t.Fatalf("expected noop logger for nil context, got %v", got)
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if got := Logger(ctx); got != logger {
		t.Fatalf("expected stored logger")
	}
	ctx = WithLogger(ctx, nil)
	if got := Logger(ctx); got != NoopLogger() {
		t.Fatalf("expected nil logger to be replaced by noop")
	}
}

func TestTraceHelpers(t *testing.T) {
	if TraceID(context.Background()) != "" {
		t.Fatalf("expected empty trace id")
	}
	ctx := WithTrace(context.Background(), TraceInfo{TraceID: "abc", SpanID: "def", Sampled: true})
	info, ok := Trace(ctx)
	if !ok {
		t.Fatalf("expected trace info")
	}
	if info.SpanID != "def" || !info.Sampled {
		t.Fatalf("unexpected trace info %#v", info)
	}
	if TraceID(ctx) != "abc" {
		t.Fatalf("expected trace id abc, got %q", TraceID(ctx))
	}
}
