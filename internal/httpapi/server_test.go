package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"seerrgram/internal/dispatch"
	logx "seerrgram/pkg/logx"
)

type fakeQueue struct {
	err    error
	events []dispatch.RawEvent
}

func (f *fakeQueue) Enqueue(e dispatch.RawEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func newTestServer(q *fakeQueue, token string, health HealthFunc) *Server {
	return New(Config{Addr: "127.0.0.1:0", AuthToken: token}, q, health, logx.Nop())
}

func TestWebhookAccepted(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	s := newTestServer(q, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook",
		strings.NewReader(`{"notification_type":"MEDIA_PENDING","subject":"Dune"}`))
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if len(q.events) != 1 {
		t.Fatalf("enqueued %d events, want 1", len(q.events))
	}
	if got := q.events[0].Str("notification_type"); got != "MEDIA_PENDING" {
		t.Errorf("event tag = %q", got)
	}
}

func TestWebhookAuth(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	s := newTestServer(q, "secret-token", nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing auth: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "secret-token")
	rec = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with auth: status = %d, want 200", rec.Code)
	}
}

func TestWebhookInvalidJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeQueue{}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookQueueFull(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeQueue{err: dispatch.ErrQueueFull}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeQueue{}, "", nil)
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	healthy := func(context.Context) map[string]error {
		return map[string]error{"store": nil, "seerr": nil}
	}
	s := newTestServer(&fakeQueue{}, "", healthy)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	degraded := func(context.Context) map[string]error {
		return map[string]error{"store": nil, "seerr": errors.New("connection refused")}
	}
	s = newTestServer(&fakeQueue{}, "", degraded)
	rec = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Errorf("body = %s", rec.Body)
	}
}
