package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datalens-mcp/datalens-mcp/internal/config"
	"github.com/datalens-mcp/datalens-mcp/internal/datalens"
	"github.com/datalens-mcp/datalens-mcp/internal/mcp"
)

func testHTTPServer(t *testing.T, backendURL, token string) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		BaseURL:      backendURL,
		APIVersion:   "0",
		OrgID:        "org-1",
		SubjectToken: "token-1",
		Timeout:      5 * time.Second,
	}
	ts := mcp.NewToolset(datalens.NewClient(cfg, logger), logger)
	return NewServer("127.0.0.1:0", ts, token, BuildInfo{Version: "test"}, logger)
}

func doRequest(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := testHTTPServer(t, "http://unused.invalid", "")

	rec := doRequest(s, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestVersion(t *testing.T) {
	s := testHTTPServer(t, "http://unused.invalid", "")

	rec := doRequest(s, http.MethodGet, "/version", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var info BuildInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if info.Version != "test" {
		t.Fatalf("unexpected version %q", info.Version)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := testHTTPServer(t, "http://unused.invalid", "")

	rec := doRequest(s, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestBearerAuthRequired(t *testing.T) {
	s := testHTTPServer(t, "http://unused.invalid", "secret")

	if rec := doRequest(s, http.MethodGet, "/mcp/tools", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/mcp/tools", "wrong", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/mcp/tools", "secret", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}

	// Health stays open regardless of the token.
	if rec := doRequest(s, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz must not require auth, got %d", rec.Code)
	}
}

func TestListToolsEndpoint(t *testing.T) {
	s := testHTTPServer(t, "http://unused.invalid", "")

	rec := doRequest(s, http.MethodGet, "/mcp/tools", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode tools: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range body.Tools {
		names[tool.Name] = true
	}
	if !names["datalens_rpc"] || !names["datalens_get_dataset"] {
		t.Fatalf("expected core tools in listing, got %v", names)
	}
}

func TestCallEndpoint(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"dataset": {"id": "ds-1"}}`))
	}))
	defer backend.Close()

	s := testHTTPServer(t, backend.URL, "")
	rec := doRequest(s, http.MethodPost, "/mcp/call", "", `{"name":"datalens_get_dataset","arguments":{"dataset_id":"ds-1"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Result map[string]any `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if _, ok := body.Result["dataset"]; !ok {
		t.Fatalf("result lost: %s", rec.Body.String())
	}
}

func TestCallEndpointErrorMapping(t *testing.T) {
	s := testHTTPServer(t, "http://unused.invalid", "")

	// Missing required argument is the caller's fault.
	rec := doRequest(s, http.MethodPost, "/mcp/call", "", `{"name":"datalens_get_dataset","arguments":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing argument, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_arguments") {
		t.Fatalf("expected error code in body, got %s", rec.Body.String())
	}

	// Unknown tools are also a caller error.
	rec = doRequest(s, http.MethodPost, "/mcp/call", "", `{"name":"datalens_magic","arguments":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown tool, got %d", rec.Code)
	}

	// Missing name is rejected before dispatch.
	rec = doRequest(s, http.MethodPost, "/mcp/call", "", `{"arguments":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", rec.Code)
	}
}

func TestCallEndpointUpstreamError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message": "maintenance"}`))
	}))
	defer backend.Close()

	s := testHTTPServer(t, backend.URL, "")
	rec := doRequest(s, http.MethodPost, "/mcp/call", "", `{"name":"datalens_get_dataset","arguments":{"dataset_id":"ds-1"}}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "upstream_status") {
		t.Fatalf("expected error code in body, got %s", rec.Body.String())
	}
}
