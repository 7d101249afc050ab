package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/magnetite/internal/config"
	"github.com/deppfellow/magnetite/internal/handler"
	"github.com/deppfellow/magnetite/internal/model"
	"github.com/deppfellow/magnetite/internal/server"
	"github.com/deppfellow/magnetite/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Primary: config.Primary{Env: "test"},
		Server:  config.ServerConfig{Port: "0", ReadTimeout: 5, WriteTimeout: 5, IdleTimeout: 5},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "magnetite.db"),
		},
		Cache:         config.DefaultCacheConfig(),
		Actor:         config.DefaultActorConfig(),
		Observability: config.DefaultObservabilityConfig(),
	}
}

// newTestApp wires the full stack over a temporary SQLite store.
func newTestApp(t *testing.T) (http.Handler, *service.ContentService) {
	t.Helper()

	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())

	s, err := server.New(ctx, testConfig(t), &logger, nil)
	if err != nil {
		cancel()
		t.Fatalf("server.New: %v", err)
	}

	services := service.NewServices(ctx, s)
	go func() { _ = services.Content.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-services.Content.Done():
		case <-time.After(2 * time.Second):
			t.Error("content service did not stop")
		}
		_ = s.Close()
	})

	return NewRouter(s, handler.NewHandlers(s, services)), services.Content
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServePublishedPage(t *testing.T) {
	h, content := newTestApp(t)

	err := content.NewPage(context.Background(), model.Page{
		Path:      "/hello",
		CreatedBy: uuid.New(),
		Published: true,
		Metadata:  []string{"<title>Hello</title>", `<meta charset="utf-8">`},
		Body:      "<p>world</p>",
	})
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}

	rec := get(t, h, "/hello")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}

	want := "<!DOCTYPE html><html><head><title>Hello</title>\n<meta charset=\"utf-8\"></head><body><p>world</p></body></html>"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestUnpublishedAndMissingPagesAre404(t *testing.T) {
	h, content := newTestApp(t)

	if err := content.NewPage(context.Background(), model.Page{Path: "/draft", Body: "wip"}); err != nil {
		t.Fatalf("NewPage: %v", err)
	}

	for _, target := range []string{"/draft", "/missing"} {
		rec := get(t, h, target)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s status = %d, want 404", target, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"code":"NOT_FOUND"`) {
			t.Fatalf("GET %s body = %s", target, rec.Body.String())
		}
	}
}

func TestRefreshBypassesCache(t *testing.T) {
	h, content := newTestApp(t)
	ctx := context.Background()

	page := model.Page{Path: "/news", Published: true, Body: "v1"}
	if err := content.NewPage(ctx, page); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if rec := get(t, h, "/news"); !strings.Contains(rec.Body.String(), "v1") {
		t.Fatalf("body = %s", rec.Body.String())
	}

	page.Body = "v2"
	if err := content.SetPage(ctx, page); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	if rec := get(t, h, "/news?refresh=true"); !strings.Contains(rec.Body.String(), "v2") {
		t.Fatalf("refresh body = %s", rec.Body.String())
	}
}

func TestStatusReportsStoreAndCache(t *testing.T) {
	h, _ := newTestApp(t)

	rec := get(t, h, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`"status":"healthy"`, `"store"`, `"cache"`, `"entries":0`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body %s does not contain %s", body, want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestApp(t)

	get(t, h, "/missing")

	rec := get(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "magnetite_cache_misses_total") {
		t.Fatalf("metrics output lacks cache counters:\n%s", rec.Body.String())
	}
}
