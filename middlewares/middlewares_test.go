package middlewares

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

func TestIsBot(t *testing.T) {
	tests := []struct {
		ua   string
		want bool
	}{
		{"", true},
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", true},
		{"facebookexternalhit/1.1", true},
		{"Mozilla/5.0 (Macintosh) HeadlessChrome/120.0", true},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0", false},
		{"portfolio-views-client/1.0", false},
	}
	for _, tt := range tests {
		if got := IsBot(tt.ua); got != tt.want {
			t.Errorf("IsBot(%q) = %v, want %v", tt.ua, got, tt.want)
		}
	}
}

func TestLoadBotList(t *testing.T) {
	t.Cleanup(func() { blockedAgents = defaultBots })

	path := filepath.Join(t.TempDir(), "bots.json")
	if err := os.WriteFile(path, []byte(`{"blocked_user_agents": [" CurlBot ", ""]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadBotList(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !IsBot("curlbot/7.0") {
		t.Error("expected the loaded fragment to match")
	}
	if IsBot("Googlebot/2.1") {
		t.Error("the loaded list replaces the defaults")
	}
	if err := LoadBotList(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestBotFilterDisablesTracking(t *testing.T) {
	var allowed bool
	h := BotFilterMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed = TrackingAllowed(r)
	}))

	req := httptest.NewRequest("GET", "/views/a", nil)
	req.Header.Set("User-Agent", "Bingbot/2.0")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if allowed {
		t.Error("bots must not be tracked")
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 Firefox/128.0")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !allowed {
		t.Error("browsers must be tracked")
	}
}

func TestLoggingMiddlewareRequestID(t *testing.T) {
	var seen string
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if seen == "" || rr.Header().Get("X-Request-ID") != seen {
		t.Errorf("expected a generated id in context and header, got %q / %q", seen, rr.Header().Get("X-Request-ID"))
	}
	if rr.Code != http.StatusTeapot {
		t.Errorf("status not passed through: %d", rr.Code)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Errorf("expected the caller's id, got %q", seen)
	}
}

func TestResponseTimeHeader(t *testing.T) {
	h := ResponseTimeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Header().Get("X-Response-Time") == "" {
		t.Error("expected X-Response-Time")
	}
}

func TestInitLoggersWritesFiles(t *testing.T) {
	t.Cleanup(func() {
		Log = zap.NewNop()
		AuditLogger = log.New(io.Discard, "", 0)
		DebugLogger = log.New(io.Discard, "", 0)
		ErrorLogger = log.New(io.Discard, "", 0)
	})

	dir := t.TempDir()
	if err := InitLoggers(dir, true); err != nil {
		t.Fatalf("init: %v", err)
	}
	Log.Info("hello")
	ErrorLogger.Printf("broken")
	DebugLogger.Printf("details")
	Log.Sync()

	for _, name := range []string{"audit", "error", "debug"} {
		path := filepath.Join(dir, name, name+".log")
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Errorf("expected %s to be written: %v", path, err)
		}
	}
}

func TestSentryAlertCaptures5xx(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("sentry client: %v", err)
	}
	hub := sentry.NewHub(client, sentry.NewScope())

	status := http.StatusInternalServerError
	h := SentryAlertMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	serve := func() {
		req := httptest.NewRequest("GET", "/views/a", nil)
		req = req.WithContext(sentry.SetHubOnContext(req.Context(), hub))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	serve()
	status = http.StatusOK
	serve()

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected one captured event, got %d", len(events))
	}
	if events[0].Tags["path"] != "/views/a" {
		t.Errorf("missing path tag: %v", events[0].Tags)
	}
}
