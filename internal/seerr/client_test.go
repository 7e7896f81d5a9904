package seerr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	logx "seerrgram/pkg/logx"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, APIKey: "test-key"}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestStatusSendsAPIKey(t *testing.T) {
	t.Parallel()

	var gotKey string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			http.NotFound(w, r)
			return
		}
		gotKey = r.Header.Get("X-Api-Key")
		_ = json.NewEncoder(w).Encode(map[string]string{"version": "1.0"})
	}))

	if err := c.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if gotKey != "test-key" {
		t.Errorf("X-Api-Key = %q", gotKey)
	}
}

func TestStatusHTTPError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	if err := c.Status(context.Background()); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestUsersPagedAndPlain(t *testing.T) {
	t.Parallel()

	paged := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"id": 1, "displayName": "alice"},
				{"id": 2, "displayName": "bob"},
			},
		})
	}))
	users, err := paged.Users(context.Background())
	if err != nil {
		t.Fatalf("Users (paged): %v", err)
	}
	if len(users) != 2 || users[1].DisplayName != "bob" {
		t.Errorf("users = %+v", users)
	}

	plain := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 3, "displayName": "carol"}})
	}))
	users, err = plain.Users(context.Background())
	if err != nil {
		t.Fatalf("Users (plain): %v", err)
	}
	if len(users) != 1 || users[0].ID != 3 {
		t.Errorf("users = %+v", users)
	}
}

func TestVerifyTelegramID(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/user", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"id": 1, "displayName": "alice"},
				{"id": 2, "displayName": "bob"},
			},
		})
	})
	mux.HandleFunc("/api/v1/user/1/settings/notifications", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"telegramChatId": "1111"})
	})
	mux.HandleFunc("/api/v1/user/2/settings/notifications", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"telegramChatId": "2222"})
	})
	c := newTestClient(t, mux)

	u, err := c.VerifyTelegramID(context.Background(), 2222)
	if err != nil {
		t.Fatalf("VerifyTelegramID: %v", err)
	}
	if u == nil || u.ID != 2 {
		t.Fatalf("matched user = %+v, want id 2", u)
	}

	u, err = c.VerifyTelegramID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("VerifyTelegramID (no match): %v", err)
	}
	if u != nil {
		t.Errorf("matched user = %+v, want nil", u)
	}
}

func TestRequestCounts(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/user/7/requests" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"id": 1, "status": 1},
				{"id": 2, "status": 2},
				{"id": 3, "status": 2},
				{"id": 4, "status": 3},
				{"id": 5, "status": 5},
			},
		})
	}))

	rc, err := c.RequestCounts(context.Background(), 7)
	if err != nil {
		t.Fatalf("RequestCounts: %v", err)
	}
	want := RequestCounts{Total: 5, Pending: 1, Approved: 2, Declined: 1, Completed: 1}
	if rc != want {
		t.Errorf("counts = %+v, want %+v", rc, want)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
