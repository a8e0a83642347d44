package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/hourjungle/crm-mcp/crm/registry"
	"github.com/hourjungle/crm-mcp/pkg/postgrest"
)

type fakeGateway struct {
	get func(collection string, q postgrest.Query) ([]postgrest.Record, error)
}

func (f *fakeGateway) Get(ctx context.Context, collection string, q postgrest.Query) ([]postgrest.Record, error) {
	if f.get == nil {
		return nil, nil
	}
	return f.get(collection, q)
}

func (f *fakeGateway) Create(ctx context.Context, collection string, fields map[string]any) (postgrest.Record, error) {
	return nil, nil
}

func (f *fakeGateway) Update(ctx context.Context, collection string, q postgrest.Query, fields map[string]any) ([]postgrest.Record, error) {
	return nil, nil
}

func (f *fakeGateway) Delete(ctx context.Context, collection string, q postgrest.Query) error {
	return nil
}

func newTestRouter(t *testing.T, gw *fakeGateway, cfg Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := registry.New(zerolog.Nop())
	reg.MustRegister(registry.Tool{
		Name:        "echo",
		Description: "echoes its input",
		Params: map[string]registry.Param{
			"value": {Type: "string", Description: "echoed back", Required: true},
		},
		Handler: func(ctx context.Context, args registry.Args) (any, error) {
			return map[string]any{"value": args.String("value")}, nil
		},
	})

	handler := NewHandler(reg, gw, zerolog.Nop())
	return NewRouter(handler, cfg)
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeGateway{}, Config{})
	rec := doRequest(router, http.MethodGet, "/health", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("body = %v", body)
	}
}

func TestListToolsCatalog(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeGateway{}, Config{})
	rec := doRequest(router, http.MethodGet, "/tools", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Tools []registry.CatalogEntry `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Tools) != 1 || body.Tools[0].Name != "echo" {
		t.Fatalf("tools = %+v", body.Tools)
	}
}

func TestCallTool(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeGateway{}, Config{})
	rec := doRequest(router, http.MethodPost, "/tools/call",
		`{"tool": "echo", "parameters": {"value": "ping"}}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result registry.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !result.Success || result.Tool != "echo" {
		t.Fatalf("result = %+v", result)
	}
}

func TestCallUnknownToolIs404(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeGateway{}, Config{})
	rec := doRequest(router, http.MethodPost, "/tools/call", `{"tool": "missing"}`, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCallToolRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeGateway{}, Config{})
	rec := doRequest(router, http.MethodPost, "/tools/call", `{"parameters": {}}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMCPInitialize(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeGateway{}, Config{})
	rec := doRequest(router, http.MethodPost, "/mcp/initialize", "{}", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["protocolVersion"] != protocolVersion {
		t.Fatalf("body = %v", body)
	}
}

func TestMCPCallToolEnvelope(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeGateway{}, Config{})
	rec := doRequest(router, http.MethodPost, "/mcp/tools/call",
		`{"name": "echo", "arguments": {"value": "ping"}}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result registry.MCPResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.IsError || len(result.Content) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Content[0].Text, "ping") {
		t.Fatalf("content = %q", result.Content[0].Text)
	}
}

func TestMCPCallUnknownToolStays200(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeGateway{}, Config{})
	rec := doRequest(router, http.MethodPost, "/mcp/tools/call", `{"name": "missing"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, protocol errors ride inside the envelope", rec.Code)
	}
	var result registry.MCPResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !result.IsError {
		t.Fatalf("result = %+v", result)
	}
}

func TestAPIPassthroughFilters(t *testing.T) {
	t.Parallel()

	var captured string
	gw := &fakeGateway{
		get: func(collection string, q postgrest.Query) ([]postgrest.Record, error) {
			captured = collection + "?" + q.Encode()
			return []postgrest.Record{{"id": float64(1)}}, nil
		},
	}
	router := newTestRouter(t, gw, Config{})
	rec := doRequest(router, http.MethodGet, "/api/payments/due?branch_id=2&urgency=critical", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(captured, "v_payments_due") ||
		!strings.Contains(captured, "branch_id=eq.2") ||
		!strings.Contains(captured, "urgency=eq.critical") {
		t.Fatalf("gateway query = %q", captured)
	}
}

func TestAPIEmptyResultIsArray(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeGateway{}, Config{})
	rec := doRequest(router, http.MethodGet, "/api/today-tasks", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("body = %q, want []", got)
	}
}

func TestAPIJWTGuard(t *testing.T) {
	t.Parallel()

	const secret = "test-secret"
	router := newTestRouter(t, &fakeGateway{}, Config{JWTSecret: secret})

	rec := doRequest(router, http.MethodGet, "/api/customers", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/api/customers", "", map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with garbage token = %d, want 401", rec.Code)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "staff-1"}).
		SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	rec = doRequest(router, http.MethodGet, "/api/customers", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status with valid token = %d, want 200", rec.Code)
	}

	// Tool surfaces stay open regardless of the API guard.
	rec = doRequest(router, http.MethodGet, "/tools", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tools status = %d, want 200", rec.Code)
	}
}
