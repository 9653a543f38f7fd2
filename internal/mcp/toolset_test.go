package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/datalens-mcp/datalens-mcp/internal/config"
	"github.com/datalens-mcp/datalens-mcp/internal/datalens"
)

func TestCallStampsTraceIDWhenContextHasNone(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
	cfg := config.Config{
		BaseURL:      "http://unused.invalid",
		APIVersion:   "0",
		OrgID:        "org-1",
		SubjectToken: "token-1",
		Timeout:      time.Second,
	}
	ts := NewToolset(datalens.NewClient(cfg, logger), logger)

	// A bare context, as the HTTP transport hands over.
	if _, err := ts.Call(context.Background(), listMethodsToolName, map[string]any{}); err != nil {
		t.Fatalf("call: %v", err)
	}

	var entry struct {
		Msg     string `json:"msg"`
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(logBuf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", logBuf.String(), err)
	}
	if entry.Msg != "tool call completed" {
		t.Fatalf("unexpected log message %q", entry.Msg)
	}
	if entry.TraceID == "" {
		t.Fatal("tool call log must carry a generated trace id")
	}
}

func TestCallKeepsTransportTraceID(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
	cfg := config.Config{
		BaseURL:      "http://unused.invalid",
		APIVersion:   "0",
		OrgID:        "org-1",
		SubjectToken: "token-1",
		Timeout:      time.Second,
	}
	ts := NewToolset(datalens.NewClient(cfg, logger), logger)

	ctx := context.WithValue(context.Background(), ctxKeyTraceID, "trace-from-transport")
	if _, err := ts.Call(ctx, listMethodsToolName, map[string]any{}); err != nil {
		t.Fatalf("call: %v", err)
	}

	var entry struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(logBuf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", logBuf.String(), err)
	}
	if entry.TraceID != "trace-from-transport" {
		t.Fatalf("expected the transport's trace id, got %q", entry.TraceID)
	}
}
