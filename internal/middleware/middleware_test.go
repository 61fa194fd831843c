package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/logging"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	handler := rl.Middleware(okHandler())
	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("10.0.0.1:5000"); rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}
	if rec := do("10.0.0.1:5001"); rec.Code != http.StatusOK {
		t.Fatalf("second request: expected 200, got %d", rec.Code)
	}

	rec := do("10.0.0.1:5002")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: expected 429, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != models.MsgRateLimited {
		t.Fatalf("unexpected error message %q", msg)
	}

	if rec := do("10.0.0.2:5000"); rec.Code != http.StatusOK {
		t.Fatalf("other client: expected 200, got %d", rec.Code)
	}

	now = now.Add(time.Minute)
	if rec := do("10.0.0.1:5003"); rec.Code != http.StatusOK {
		t.Fatalf("next window: expected 200, got %d", rec.Code)
	}
}

func TestTickets_IssueAndVerify(t *testing.T) {
	tickets := NewTickets("test-secret", time.Minute)
	id := uuid.New()

	token, err := tickets.Issue(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := tickets.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
}

func TestTickets_Rejects(t *testing.T) {
	tickets := NewTickets("test-secret", time.Minute)
	other := NewTickets("other-secret", time.Minute)
	expired := NewTickets("test-secret", -time.Minute)

	foreign, _ := other.Issue(uuid.New())
	stale, _ := expired.Issue(uuid.New())

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", foreign},
		{"expired", stale},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tickets.Verify(tc.token); err != ErrInvalidTicket {
				t.Fatalf("expected ErrInvalidTicket, got %v", err)
			}
		})
	}
}

func TestTickets_Middleware(t *testing.T) {
	tickets := NewTickets("test-secret", time.Minute)
	id := uuid.New()
	token, _ := tickets.Issue(id)

	var seen uuid.UUID
	var found bool
	handler := tickets.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, found = GetAnalysisID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
	req.Header.Set(TicketHeader, token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !found || seen != id {
		t.Fatalf("expected ticketed id %s, got %s (found=%v)", id, seen, found)
	}

	req = httptest.NewRequest(http.MethodPost, "/analyze", nil)
	req.Header.Set(TicketHeader, "bogus")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if found {
		t.Fatalf("expected invalid ticket to be ignored")
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected response header to echo request id")
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, incoming)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != incoming {
		t.Fatalf("expected incoming id %s to be kept, got %s", incoming, seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "<script>" {
		t.Fatalf("expected malformed id to be replaced")
	}
}

func TestRecover(t *testing.T) {
	handler := Recover(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != models.MsgAnalysisFailed {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS("http://localhost:5173")(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected frontend origin to be allowed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected other origin to be refused, got %q", got)
	}
}
