package postgrest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return MustNew(Config{URL: srv.URL})
}

func TestClientGetDecodesArray(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers" {
			t.Errorf("path = %q, want /customers", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "eq.7" {
			t.Errorf("id filter = %q, want eq.7", got)
		}
		w.Write([]byte(`[{"id": 7, "name": "Acme"}]`))
	})

	records, err := client.Get(context.Background(), "customers", NewQuery().Eq("id", 7))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Get() returned %d records, want 1", len(records))
	}
	if got := records[0].String("name"); got != "Acme" {
		t.Fatalf("name = %q, want Acme", got)
	}
}

func TestClientGetNullBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	})

	records, err := client.Get(context.Background(), "customers", Query{})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if records != nil {
		t.Fatalf("Get() = %v, want nil", records)
	}
}

func TestClientCreateWantsRepresentation(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Prefer"); got != "return=representation" {
			t.Errorf("Prefer = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id": 12}]`))
	})

	record, err := client.Create(context.Background(), "quotes", map[string]any{"status": "draft"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := record.Int("id"); got != 12 {
		t.Fatalf("id = %d, want 12", got)
	}
}

func TestClientCreateAcceptsBareObject(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 3}`))
	})

	record, err := client.Create(context.Background(), "quotes", map[string]any{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := record.Int("id"); got != 3 {
		t.Fatalf("id = %d, want 3", got)
	}
}

func TestClientUpdateEmptyMatch(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		w.Write([]byte("[]"))
	})

	rows, err := client.Update(context.Background(), "quotes", NewQuery().Eq("id", 1), map[string]any{"status": "sent"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("Update() returned %d rows, want 0", len(rows))
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message": "duplicate key"}`))
	})

	_, err := client.Get(context.Background(), "quotes", Query{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("StatusCode = %d, want 409", apiErr.StatusCode)
	}
}

func TestClientRejectsEmptyCollection(t *testing.T) {
	t.Parallel()

	client := MustNew(Config{URL: "http://localhost:1"})
	if _, err := client.Get(context.Background(), " ", Query{}); !errors.Is(err, ErrEmptyCollection) {
		t.Fatalf("error = %v, want ErrEmptyCollection", err)
	}
}

func TestNewClientValidatesURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: ""}); err == nil {
		t.Fatal("NewClient() accepted an empty url")
	}
	if _, err := NewClient(Config{URL: "not a url"}); err == nil {
		t.Fatal("NewClient() accepted a malformed url")
	}
}
