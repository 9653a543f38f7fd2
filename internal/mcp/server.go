package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/datalens-mcp/datalens-mcp/internal/catalog"
	"github.com/datalens-mcp/datalens-mcp/internal/datalens"
)

const protocolVersion = "2024-11-05"

type ctxKey string

const ctxKeyTraceID ctxKey = "trace_id"

// Server speaks line-delimited JSON-RPC 2.0 over a byte stream. The same loop
// serves stdio (the default MCP transport) and accepted TCP connections.
type Server struct {
	ts      *Toolset
	logger  *slog.Logger
	addr    string
	version string

	ln     net.Listener
	mu     sync.Mutex
	closed bool
}

func NewServer(addr string, ts *Toolset, logger *slog.Logger, version string) *Server {
	return &Server{ts: ts, logger: logger, addr: addr, version: version}
}

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ServeStdio runs the JSON-RPC loop over the given streams until EOF or the
// context is canceled. The caller owns the streams; stdout must carry nothing
// but protocol frames.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	return s.serveStream(ctx, r, w)
}

// ListenAndServe accepts TCP connections, one JSON-RPC stream per connection.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("mcp server starting", "transport", "tcp", "addr", s.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			s.logger.Error("mcp accept error", "err", err)
			continue
		}
		go func() {
			defer conn.Close()
			if err := s.serveStream(context.Background(), conn, conn); err != nil {
				s.logger.Error("mcp connection error", "err", err)
			}
		}()
	}
}

func (s *Server) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func (s *Server) serveStream(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, jsonRPCResponse{
				JSONRPC: "2.0",
				ID:      nil,
				Error:   &rpcError{Code: -32700, Message: "parse error"},
			})
			continue
		}

		// Notifications carry no id and must not be answered.
		if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
			continue
		}

		traceID := uuid.New().String()
		reqCtx := context.WithValue(ctx, ctxKeyTraceID, traceID)
		s.writeResponse(w, s.dispatch(reqCtx, req))
	}
	return scanner.Err()
}

func (s *Server) writeResponse(w io.Writer, resp jsonRPCResponse) {
	data, _ := json.Marshal(resp)
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Error("mcp write error", "err", err)
	}
}

func (s *Server) dispatch(ctx context.Context, req jsonRPCRequest) jsonRPCResponse {
	base := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		base.Result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": false}},
			"serverInfo":      map[string]any{"name": "datalens-mcp", "version": s.version},
			"instructions":    ServerInstructions,
		}
		return base

	case "ping":
		base.Result = map[string]any{}
		return base

	case "tools/list":
		base.Result = map[string]any{"tools": s.ts.ListTools()}
		return base

	case "tools/call":
		return s.handleToolCall(ctx, req, base)

	default:
		base.Error = &rpcError{Code: -32601, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return base
	}
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) handleToolCall(ctx context.Context, req jsonRPCRequest, base jsonRPCResponse) jsonRPCResponse {
	var params toolCallParams
	dec := json.NewDecoder(strings.NewReader(string(req.Params)))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		base.Error = &rpcError{Code: -32602, Message: "invalid params: " + err.Error()}
		return base
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	result, err := s.ts.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		base.Error = rpcErrorFor(err)
		return base
	}

	text, merr := json.Marshal(result)
	if merr != nil {
		base.Error = &rpcError{Code: -32603, Message: "failed to encode tool result: " + merr.Error()}
		return base
	}
	base.Result = map[string]any{
		"content":           []map[string]any{{"type": "text", "text": string(text)}},
		"structuredContent": result,
	}
	return base
}

// rpcErrorFor maps the gateway error taxonomy onto JSON-RPC error codes.
// Every mapped error names the remote method (or failing field) in data so
// callers can trace it without parsing the message.
func rpcErrorFor(err error) *rpcError {
	var argErr *datalens.ArgumentError
	if errors.As(err, &argErr) {
		data := map[string]any{}
		if argErr.Method != "" {
			data["method"] = argErr.Method
		}
		if argErr.Field != "" {
			data["field"] = argErr.Field
		}
		return &rpcError{Code: -32602, Message: argErr.Error(), Data: nilIfEmpty(data)}
	}

	var notFound *catalog.NotFoundError
	if errors.As(err, &notFound) {
		return &rpcError{
			Code:    -32602,
			Message: notFound.Error(),
			Data:    map[string]any{"hint": notFound.Hint()},
		}
	}

	var unknown *UnknownToolError
	if errors.As(err, &unknown) {
		return &rpcError{Code: -32602, Message: unknown.Error()}
	}

	var cfgErr *datalens.ConfigError
	if errors.As(err, &cfgErr) {
		return &rpcError{Code: -32600, Message: cfgErr.Error()}
	}

	var upErr *datalens.UpstreamError
	if errors.As(err, &upErr) {
		return &rpcError{
			Code:    -32603,
			Message: upErr.Error(),
			Data: map[string]any{
				"method":   upErr.Method,
				"status":   upErr.Status,
				"response": upErr.Detail,
			},
		}
	}

	var decErr *datalens.DecodeError
	if errors.As(err, &decErr) {
		return &rpcError{
			Code:    -32603,
			Message: decErr.Error(),
			Data:    map[string]any{"method": decErr.Method, "body": decErr.Body},
		}
	}

	var trErr *datalens.TransportError
	if errors.As(err, &trErr) {
		return &rpcError{
			Code:    -32603,
			Message: trErr.Error(),
			Data:    map[string]any{"method": trErr.Method},
		}
	}

	return &rpcError{Code: -32603, Message: err.Error()}
}

func nilIfEmpty(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}
