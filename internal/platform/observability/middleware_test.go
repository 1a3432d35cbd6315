package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bakushin-github/bakushin.dev/internal/platform/requestctx"
)

func TestRecoveryMiddlewareWritesJSON(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/all-works", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "internal_server_error" {
		t.Fatalf("unexpected body %v", body)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged once")
	}
}

func TestRequestLoggerUsesRoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := chi.NewRouter()
	router.Use(InjectLoggerMiddleware(zap.New(core)), RequestLoggerMiddleware())
	router.Get("/all-works/{slug}", func(w http.ResponseWriter, r *http.Request) {
		if requestctx.Logger(r.Context()) == requestctx.NoopLogger() {
			t.Errorf("expected request scoped logger")
		}
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/all-works/alpha", nil))

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one completion entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "/all-works/{slug}" {
		t.Fatalf("expected route pattern, got %v", fields["route"])
	}
	if fields["status"] != int64(http.StatusNoContent) {
		t.Fatalf("expected status 204, got %v", fields["status"])
	}
}

func TestParseCloudTraceContext(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		ok      bool
		sampled bool
	}{
		{name: "decimal span sampled", header: "105445aa7843bc8bf206b12000100000/1;o=1", ok: true, sampled: true},
		{name: "unsampled", header: "105445aa7843bc8bf206b12000100000/123456789;o=0", ok: true},
		{name: "missing span", header: "105445aa7843bc8bf206b12000100000", ok: false},
		{name: "short trace", header: "abc/1;o=1", ok: false},
		{name: "empty", header: "", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sc, ok := parseCloudTraceContext(tc.header)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if ok && sc.IsSampled() != tc.sampled {
				t.Fatalf("expected sampled=%v", tc.sampled)
			}
		})
	}
}

func TestTraceMiddlewareStoresTraceInfo(t *testing.T) {
	var got requestctx.TraceInfo
	handler := TraceMiddleware("demo-project")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.TraceID != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("expected trace id to be continued, got %q", got.TraceID)
	}
	if got.ProjectID != "demo-project" {
		t.Fatalf("expected project id, got %q", got.ProjectID)
	}
}
