// Package datalens implements the outbound call engine for the DataLens RPC
// API: request construction, authentication headers, and response
// classification into the gateway's error taxonomy.
package datalens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/datalens-mcp/datalens-mcp/internal/config"
	"github.com/datalens-mcp/datalens-mcp/internal/telemetry"
)

// Client issues DataLens RPC calls. The underlying http.Client and its
// connection pool are constructed once and shared by all invocations; the
// client holds no per-call state.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Invoke sends one RPC call and classifies the result. payload must be a JSON
// object; org id and credential are checked on every call so the failure mode
// is diagnosed per invocation, not cached.
func (c *Client) Invoke(ctx context.Context, method string, payload any) (map[string]any, error) {
	body, ok := asObject(payload)
	if !ok {
		return nil, &ArgumentError{Method: method, Reason: "payload must be a JSON object"}
	}

	if c.cfg.OrgID == "" {
		return nil, &ConfigError{Missing: "DATALENS_ORG_ID"}
	}
	if c.cfg.SubjectToken == "" {
		return nil, &ConfigError{Missing: "YC_IAM_TOKEN (or DATALENS_IAM_TOKEN)"}
	}

	url := fmt.Sprintf("%s/rpc/%s", strings.TrimRight(c.cfg.BaseURL, "/"), method)
	c.logger.Debug("calling DataLens API", "method", method, "url", url)

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &ArgumentError{Method: method, Reason: fmt.Sprintf("payload is not serializable: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, &TransportError{Method: method, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-dl-api-version", c.cfg.APIVersion)
	req.Header.Set("x-dl-org-id", c.cfg.OrgID)
	req.Header.Set("x-yacloud-subjecttoken", c.cfg.SubjectToken)
	req.Header.Set("x-dl-auth-token", legacyAuthValue(c.cfg.SubjectToken))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.IncTransportFailure()
		return nil, &TransportError{Method: method, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.IncTransportFailure()
		return nil, &TransportError{Method: method, Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		telemetry.IncRPCError(method, resp.StatusCode)
		return nil, &UpstreamError{
			Method: method,
			Status: resp.StatusCode,
			Detail: parseErrorDetail(raw),
		}
	}

	if strings.TrimSpace(string(raw)) == "" {
		return map[string]any{}, nil
	}

	// Decode into any first: unmarshaling "null" into a map is a silent no-op,
	// and a 2xx scalar or array body must classify as a decode failure.
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &DecodeError{
			Method: method,
			Body:   TruncateUTF8(string(raw), MaxErrorBodyBytes),
			Cause:  err,
		}
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &DecodeError{
			Method: method,
			Body:   TruncateUTF8(string(raw), MaxErrorBodyBytes),
			Cause:  fmt.Errorf("response body is not a JSON object"),
		}
	}
	return obj, nil
}

// legacyAuthValue prefixes the credential with "OAuth " for the legacy auth
// header. Idempotent: an already-prefixed credential is passed through.
func legacyAuthValue(token string) string {
	if strings.HasPrefix(token, "OAuth ") {
		return token
	}
	return "OAuth " + token
}

// parseErrorDetail favors a structured JSON error payload, falling back to the
// truncated raw body as text.
func parseErrorDetail(raw []byte) any {
	var detail any
	if err := json.Unmarshal(raw, &detail); err != nil {
		return TruncateUTF8(string(raw), MaxErrorBodyBytes)
	}
	return detail
}

// asObject accepts the payload shapes produced by the canonicalizer and the
// generic rpc tool and rejects everything that is not a JSON object.
func asObject(payload any) (map[string]any, bool) {
	switch v := payload.(type) {
	case map[string]any:
		return v, true
	case nil:
		return nil, false
	default:
		return nil, false
	}
}
