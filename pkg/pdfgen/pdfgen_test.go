package pdfgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRenderReturnsDocument(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("path = %q, want /generate", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["template"] != "quote" {
			t.Errorf("template = %v, want quote", body["template"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"pdf_url":    "https://signed.example/q.pdf",
			"pdf_path":   "quotes/q.pdf",
			"expires_at": "2026-09-01T00:00:00Z",
		})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	doc, err := client.Render(context.Background(), "quote", map[string]any{"quote_id": 1})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if doc.URL != "https://signed.example/q.pdf" {
		t.Fatalf("URL = %q", doc.URL)
	}
	if doc.ExpiresAt != "2026-09-01T00:00:00Z" {
		t.Fatalf("ExpiresAt = %q", doc.ExpiresAt)
	}
}

func TestRenderReportedFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "template missing"})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Render(context.Background(), "quote", nil)
	if !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("error = %v, want ErrRenderFailed", err)
	}
}

func TestRenderUnauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Render(context.Background(), "quote", nil)
	if !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("error = %v, want ErrRenderFailed", err)
	}
}

func TestRenderSendsIdentityToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer id-token" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL}, WithTokenSource(func(ctx context.Context, audience string) (string, error) {
		return "id-token", nil
	}))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.Render(context.Background(), "quote", nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
}
