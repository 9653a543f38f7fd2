package datalens

import (
	"errors"
	"fmt"
	"net/http"
)

// CodedError is implemented by gateway errors that carry a machine-readable code.
type CodedError interface {
	error
	ErrorCode() string
}

// ConfigError reports a required configuration value missing at call time.
// Not retryable within this process; configuration is resolved once at startup.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s environment variable is required", e.Missing)
}

func (e *ConfigError) ErrorCode() string { return "config_missing" }

// ArgumentError reports malformed or missing tool arguments. No network call
// has been attempted when this is returned.
type ArgumentError struct {
	Method string
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("field %q %s", e.Field, e.Reason)
	}
	return e.Reason
}

func (e *ArgumentError) ErrorCode() string { return "invalid_arguments" }

// TransportError reports a DNS/connect/TLS/timeout failure reaching the API.
type TransportError struct {
	Method string
	Cause  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to reach DataLens API for method %s: %v", e.Method, e.Cause)
}

func (e *TransportError) ErrorCode() string { return "transport_failed" }

func (e *TransportError) Unwrap() error { return e.Cause }

// UpstreamError reports a non-2xx status from the API. Detail is the parsed
// JSON error payload when the body is valid JSON, otherwise the truncated raw
// body as a string.
type UpstreamError struct {
	Method string
	Status int
	Detail any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("DataLens API returned HTTP %d for method %s", e.Status, e.Method)
}

func (e *UpstreamError) ErrorCode() string { return "upstream_status" }

// DecodeError reports a 2xx response whose body is not a JSON object. This is
// a contract violation with the upstream API and is never swallowed as success.
type DecodeError struct {
	Method string
	Body   string
	Cause  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("DataLens API returned invalid or non-object JSON for method %s: %v", e.Method, e.Cause)
}

func (e *DecodeError) ErrorCode() string { return "decode_failed" }

func (e *DecodeError) Unwrap() error { return e.Cause }

// HTTPStatus maps a gateway error to an HTTP transport status.
func HTTPStatus(err error) int {
	var coded CodedError
	if !errors.As(err, &coded) {
		return http.StatusInternalServerError
	}
	switch coded.ErrorCode() {
	case "invalid_arguments":
		return http.StatusBadRequest
	case "config_missing":
		return http.StatusInternalServerError
	case "transport_failed", "upstream_status", "decode_failed":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
