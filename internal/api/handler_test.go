//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pulseplan-ai/pulseplan/internal/chat"
	"github.com/pulseplan-ai/pulseplan/internal/config"
	"github.com/pulseplan-ai/pulseplan/internal/identity"
	"github.com/pulseplan-ai/pulseplan/internal/llm"
	"github.com/pulseplan-ai/pulseplan/internal/memory"
	"github.com/pulseplan-ai/pulseplan/internal/plan"
	"github.com/pulseplan-ai/pulseplan/internal/store"
)

type fakeModel struct {
	mu       sync.Mutex
	count    int
	response string
}

func (f *fakeModel) Complete(_ context.Context, _ llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return f.response, nil
}

func (f *fakeModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// newTestRouter wires the full API surface against a real SQLite store, the
// same way the serve command does.
func newTestRouter(t *testing.T, model llm.Client, rateLimit int) http.Handler {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	kw := config.DefaultKeywords()
	mem := memory.NewManager(repo, nil, memory.Options{Keywords: kw.Extractor}, slog.Default())
	plans := plan.NewService(repo, slog.Default())
	generator := plan.NewGenerator(repo, model, plan.GeneratorConfig{Model: "test-plan-model", Temperature: 0.7}, slog.Default())
	chatSvc := chat.NewService(repo, mem, plans, model, kw.Detector, chat.Config{
		Model:         "test-chat-model",
		MaxMessageLen: 4000,
	}, nil, slog.Default())

	base := NewHandler(repo, chatSvc, plans, generator)
	limiter := NewRateLimiter(rateLimit, time.Minute)

	r := chi.NewRouter()
	NewHealthHandler(repo).RegisterHealth(r)
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo))
		NewChatHandler(base, limiter, 4000).RegisterRoutes(r)
		NewPlanHandler(base).RegisterRoutes(r)
		NewProfileHandler(base).RegisterRoutes(r)
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set(identity.UserHeaderName, strconv.FormatInt(userID, 10))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestIdentityGateRejectsBadUserIDs(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t, &fakeModel{response: "ok"}, 100)

	for _, tc := range []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"malformed", "abc"},
		{"negative", "-3"},
		{"zero", "0"},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		if tc.header != "" {
			req.Header.Set(identity.UserHeaderName, tc.header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", tc.name, rr.Code)
		}
	}
}

func TestHealthEndpointsArePublic(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t, &fakeModel{response: "ok"}, 100)

	rr := doJSON(t, h, http.MethodGet, "/health", 0, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/health/ready", 0, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health/ready, got %d", rr.Code)
	}
	var ready map[string]interface{}
	decodeBody(t, rr, &ready)
	if ready["status"] != "healthy" {
		t.Fatalf("expected healthy status, got %v", ready["status"])
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(2, 50*time.Millisecond)

	if !rl.Allow(1) || !rl.Allow(1) {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow(1) {
		t.Fatal("third request within the window should be throttled")
	}
	if !rl.Allow(2) {
		t.Fatal("other users must not be affected")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow(1) {
		t.Fatal("expired window should re-admit the user")
	}
}
