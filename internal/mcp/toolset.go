// Package mcp exposes the gateway's tools over the Model Context Protocol:
// a shared dispatch surface (Toolset) and a line-delimited JSON-RPC server
// that speaks it on stdio or TCP.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/datalens-mcp/datalens-mcp/internal/catalog"
	"github.com/datalens-mcp/datalens-mcp/internal/datalens"
	"github.com/datalens-mcp/datalens-mcp/internal/telemetry"
	"github.com/datalens-mcp/datalens-mcp/internal/tools"
)

const (
	genericToolName      = "datalens_rpc"
	listMethodsToolName  = "datalens_list_methods"
	methodSchemaToolName = "datalens_get_method_schema"
)

// ServerInstructions is surfaced to MCP clients during initialize.
const ServerInstructions = "DataLens MCP gateway. Configure DATALENS_ORG_ID and YC_IAM_TOKEN (or DATALENS_IAM_TOKEN) before calling tools. For broad RPC usage: call datalens_list_methods, then datalens_get_method_schema for the chosen method, then call either a typed tool or datalens_rpc."

// Toolset is the transport-independent dispatch surface shared by the stdio,
// TCP, and HTTP transports. It owns no per-call state.
type Toolset struct {
	client *datalens.Client
	logger *slog.Logger
}

func NewToolset(client *datalens.Client, logger *slog.Logger) *Toolset {
	return &Toolset{client: client, logger: logger}
}

// ToolDef is one advertised tool.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ListTools returns every tool in declaration order: the generic rpc tool and
// the catalog queries first, then the typed wrappers.
func (ts *Toolset) ListTools() []ToolDef {
	defs := []ToolDef{
		{
			Name:        genericToolName,
			Description: "Call any DataLens RPC method by its method name and JSON payload.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"method":  map[string]any{"type": "string"},
					"payload": map[string]any{"description": "JSON value, or a JSON-encoded string", "default": map[string]any{}},
				},
				"required": []string{"method"},
			},
		},
		{
			Name:        listMethodsToolName,
			Description: "List DataLens API methods known to this server, with MCP tool names and method categories.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        methodSchemaToolName,
			Description: "Return OpenAPI request schema and invocation hints for a DataLens RPC method.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"method": map[string]any{"type": "string"},
				},
				"required": []string{"method"},
			},
		},
	}
	for _, t := range tools.Definitions {
		defs = append(defs, ToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: tools.InputSchema(t),
		})
	}
	return defs
}

// Call dispatches one tool invocation. Catalog tools are answered locally;
// everything else canonicalizes arguments and invokes the remote method.
func (ts *Toolset) Call(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	// A transport that didn't stamp a trace id gets one here, so every
	// invocation is traceable in the logs.
	traceID, _ := ctx.Value(ctxKeyTraceID).(string)
	if traceID == "" {
		traceID = uuid.New().String()
		ctx = context.WithValue(ctx, ctxKeyTraceID, traceID)
	}

	start := time.Now()
	result, err := ts.call(ctx, name, args)
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = errorStatus(err)
	}
	telemetry.IncToolCall(name, status)
	telemetry.ObserveToolDuration(name, duration)

	ts.logger.Info("tool call completed",
		"trace_id", traceID,
		"tool", name,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
	return result, err
}

func (ts *Toolset) call(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case genericToolName:
		return ts.callGenericRPC(ctx, args)
	case listMethodsToolName:
		return ts.listMethods()
	case methodSchemaToolName:
		return ts.methodSchema(args)
	}

	tool, ok := tools.ByName(name)
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	payload, err := tools.Canonicalize(tool, args)
	if err != nil {
		return nil, err
	}
	return ts.client.Invoke(ctx, tool.Method, payload)
}

func (ts *Toolset) callGenericRPC(ctx context.Context, args map[string]any) (map[string]any, error) {
	method, ok := args["method"].(string)
	if !ok || method == "" {
		return nil, &datalens.ArgumentError{Field: "method", Reason: "is required"}
	}

	payload, ok := args["payload"]
	if !ok || payload == nil {
		payload = map[string]any{}
	}
	payload, err := tools.NormalizeJSONValue(payload, "payload")
	if err != nil {
		var argErr *datalens.ArgumentError
		if errors.As(err, &argErr) && argErr.Method == "" {
			argErr.Method = method
		}
		return nil, err
	}
	return ts.client.Invoke(ctx, method, payload)
}

func (ts *Toolset) listMethods() (map[string]any, error) {
	reg, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	methods := make([]map[string]any, 0, len(reg.Methods))
	for _, m := range reg.List() {
		mcpTool := m.TypedTool
		if mcpTool == "" {
			mcpTool = genericToolName
		}
		methods = append(methods, map[string]any{
			"method":       m.Method,
			"mcpTool":      mcpTool,
			"typedTool":    nullableString(m.TypedTool),
			"invokeWith":   m.InvokeWith,
			"category":     m.Category,
			"experimental": m.Experimental,
			"summary":      m.Summary,
		})
	}

	return map[string]any{
		"snapshotDate":   reg.SnapshotDate,
		"sourceUrl":      reg.SourceURL,
		"openapiVersion": reg.OpenAPIVersion,
		"apiInfo":        reg.APIInfo,
		"totalMethods":   len(methods),
		"genericTool":    genericToolName,
		"methods":        methods,
	}, nil
}

func (ts *Toolset) methodSchema(args map[string]any) (map[string]any, error) {
	name, _ := firstString(args, "method", "methodName")
	if name == "" {
		return nil, &datalens.ArgumentError{Field: "method", Reason: "is required"}
	}

	reg, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	m, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"snapshotDate":    reg.SnapshotDate,
		"sourceUrl":       reg.SourceURL,
		"openapiVersion":  reg.OpenAPIVersion,
		"method":          m.Method,
		"category":        m.Category,
		"experimental":    m.Experimental,
		"typedTool":       nullableString(m.TypedTool),
		"invokeWith":      m.InvokeWith,
		"summary":         m.Summary,
		"description":     m.Description,
		"requestSchema":   m.RequestSchema,
		"requestExample":  m.RequestExample,
		"responseExample": m.ResponseExample,
	}, nil
}

// UnknownToolError reports a tools/call against a name this server does not
// advertise.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "unknown tool: " + e.Name
}

func errorStatus(err error) string {
	var coded datalens.CodedError
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	var notFound *catalog.NotFoundError
	if errors.As(err, &notFound) {
		return "invalid_arguments"
	}
	var unknown *UnknownToolError
	if errors.As(err, &unknown) {
		return "unknown_tool"
	}
	return "internal_error"
}

// firstString scans the keys in declaration order and returns the first
// string value present.
func firstString(args map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := args[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
