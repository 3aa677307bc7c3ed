package kit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"MiniInventory/pkg/kit"
)

func TestWriteMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/items", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimw.RequestIDKey, "rid-1"))
	rec := httptest.NewRecorder()

	kit.WriteMethodNotAllowed(rec, req, "GET, POST")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("code=%d", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != "GET, POST" {
		t.Fatalf("Allow=%q", got)
	}

	var body kit.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Método PATCH no permitido" || body.RequestID != "rid-1" {
		t.Fatalf("body=%+v", body)
	}
}

func TestMetricsAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})

	cases := []struct {
		token, header string
		want          int
	}{
		{"s3cret", "Bearer s3cret", http.StatusOK},
		{"s3cret", "Bearer wrong", http.StatusForbidden},
		{"s3cret", "s3cret", http.StatusForbidden},
		{"s3cret", "", http.StatusForbidden},
		{"", "Bearer ", http.StatusForbidden},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		kit.MetricsAuth(tc.token)(ok).ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Fatalf("token=%q header=%q code=%d want=%d", tc.token, tc.header, rec.Code, tc.want)
		}
	}
}

func TestLogging_RecordsRoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Logging(zap.New(core)))
	r.Get("/api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries=%d", len(entries))
	}

	first := entries[0].ContextMap()
	if first["route"] != "/api/items/{id}" || first["path"] != "/api/items/42" || first["status"] != int64(404) {
		t.Fatalf("fields=%v", first)
	}
	if first["request_id"] == "" {
		t.Fatalf("missing request id")
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("5xx logged at %v", entries[1].Level)
	}
}

func TestRecoverer(t *testing.T) {
	h := kit.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code=%d", rec.Code)
	}
}

func TestRunHTTPServer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- kit.RunHTTPServer(ctx, "127.0.0.1:0", http.NotFoundHandler(), zap.NewNop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("err=%v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestNewLogger_BadLevelFallsBack(t *testing.T) {
	l := kit.NewLogger("inventory-api", "verbose")
	if !l.Core().Enabled(zapcore.InfoLevel) || l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("unexpected level")
	}

	if !kit.NewLogger("inventory-api", "debug").Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level not applied")
	}
}
