// Package config resolves process-wide gateway settings from the environment.
// Configuration is read once at startup and never reloaded; a missing org id or
// credential is reported at call time, not here, so the process can still start
// and serve catalog queries.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	DefaultBaseURL        = "https://api.datalens.tech"
	DefaultAPIVersion     = "0"
	DefaultTimeoutSeconds = 30
)

// Config holds the settings shared by every DataLens call. Read-only after FromEnv.
type Config struct {
	BaseURL      string
	APIVersion   string
	OrgID        string
	SubjectToken string
	Timeout      time.Duration

	// Optional transports. Empty means disabled (stdio MCP is always available).
	MCPListen  string
	HTTPListen string
	HTTPToken  string
}

// FromEnv builds the configuration from environment variables. Invalid values
// never abort startup: they are logged and replaced with defaults.
func FromEnv(logger *slog.Logger) Config {
	return Config{
		BaseURL:      envOrDefault("DATALENS_BASE_URL", DefaultBaseURL),
		APIVersion:   envOrDefault("DATALENS_API_VERSION", DefaultAPIVersion),
		OrgID:        envNonEmpty("DATALENS_ORG_ID"),
		SubjectToken: firstNonEmpty("DATALENS_IAM_TOKEN", "YC_IAM_TOKEN", "DATALENS_SUBJECT_TOKEN"),
		Timeout:      time.Duration(parseTimeoutSeconds(logger)) * time.Second,
		MCPListen:    envNonEmpty("DATALENS_MCP_LISTEN"),
		HTTPListen:   envNonEmpty("DATALENS_HTTP_LISTEN"),
		HTTPToken:    envNonEmpty("DATALENS_HTTP_TOKEN"),
	}
}

// WarnOnStartup reports configuration gaps that will fail tool calls later.
func (c Config) WarnOnStartup(logger *slog.Logger) {
	if c.OrgID == "" {
		logger.Warn("DATALENS_ORG_ID is not set; tool calls will fail until it is configured")
	}
	if c.SubjectToken == "" {
		logger.Warn("DATALENS_IAM_TOKEN / YC_IAM_TOKEN is not set; tool calls will fail until it is configured")
		return
	}
	if exp, ok := TokenExpiry(c.SubjectToken); ok && time.Now().After(exp) {
		logger.Warn("configured IAM token is expired", "expired_at", exp.UTC().Format(time.RFC3339))
	}
}

// TokenExpiry extracts the expiry claim from a JWT-shaped credential without
// verifying its signature. Returns false for opaque (non-JWT) tokens or tokens
// without an exp claim; those are passed through to the API as-is.
func TokenExpiry(token string) (time.Time, bool) {
	token = strings.TrimPrefix(token, "OAuth ")
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func parseTimeoutSeconds(logger *slog.Logger) int {
	raw := envNonEmpty("DATALENS_TIMEOUT_SECONDS")
	if raw == "" {
		return DefaultTimeoutSeconds
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("invalid DATALENS_TIMEOUT_SECONDS, using default",
			"value", raw, "default", DefaultTimeoutSeconds)
		return DefaultTimeoutSeconds
	}
	if secs <= 0 {
		logger.Warn("DATALENS_TIMEOUT_SECONDS must be positive, using default",
			"value", raw, "default", DefaultTimeoutSeconds)
		return DefaultTimeoutSeconds
	}
	return secs
}

func envNonEmpty(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOrDefault(key, fallback string) string {
	if v := envNonEmpty(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(keys ...string) string {
	for _, key := range keys {
		if v := envNonEmpty(key); v != "" {
			return v
		}
	}
	return ""
}
