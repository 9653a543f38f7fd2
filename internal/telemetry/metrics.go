// Package telemetry keeps process-local counters for tool calls and DataLens
// API failures and renders them in Prometheus text format.
package telemetry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var defaultRegistry = newRegistry()

type registry struct {
	mu                  sync.Mutex
	toolCalls           map[string]map[string]int64
	toolDurationBuckets map[string][]int64
	rpcErrors           map[string]map[int]int64
	transportFailures   int64
}

func newRegistry() *registry {
	return &registry{
		toolCalls:           make(map[string]map[string]int64),
		toolDurationBuckets: make(map[string][]int64),
		rpcErrors:           make(map[string]map[int]int64),
	}
}

// IncToolCall counts one tool invocation with its terminal status
// ("ok", "invalid_arguments", "upstream_status", ...).
func IncToolCall(toolName, status string) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	if _, ok := defaultRegistry.toolCalls[toolName]; !ok {
		defaultRegistry.toolCalls[toolName] = make(map[string]int64)
	}
	defaultRegistry.toolCalls[toolName][status]++
}

func ObserveToolDuration(toolName string, d time.Duration) {
	buckets := []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}
	sec := d.Seconds()

	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	if _, ok := defaultRegistry.toolDurationBuckets[toolName]; !ok {
		defaultRegistry.toolDurationBuckets[toolName] = make([]int64, len(buckets)+1)
	}
	idx := len(buckets)
	for i, b := range buckets {
		if sec <= b {
			idx = i
			break
		}
	}
	defaultRegistry.toolDurationBuckets[toolName][idx]++
}

// IncRPCError counts a non-2xx DataLens response by method and status code.
func IncRPCError(method string, statusCode int) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	if _, ok := defaultRegistry.rpcErrors[method]; !ok {
		defaultRegistry.rpcErrors[method] = make(map[int]int64)
	}
	defaultRegistry.rpcErrors[method][statusCode]++
}

func IncTransportFailure() {
	defaultRegistry.mu.Lock()
	defaultRegistry.transportFailures++
	defaultRegistry.mu.Unlock()
}

func RenderPrometheus() string {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	var sb strings.Builder

	sb.WriteString("# TYPE datalens_mcp_tool_calls_total counter\n")
	for _, tool := range sortedKeys(defaultRegistry.toolCalls) {
		for _, status := range sortedKeys(defaultRegistry.toolCalls[tool]) {
			sb.WriteString(fmt.Sprintf("datalens_mcp_tool_calls_total{tool=\"%s\",status=\"%s\"} %d\n", tool, status, defaultRegistry.toolCalls[tool][status]))
		}
	}

	sb.WriteString("# TYPE datalens_mcp_tool_duration_seconds_bucket counter\n")
	bucketLabels := []string{"0.1", "0.5", "1", "2", "5", "10", "30", "60", "+Inf"}
	for _, tool := range sortedKeys(defaultRegistry.toolDurationBuckets) {
		for i, v := range defaultRegistry.toolDurationBuckets[tool] {
			sb.WriteString(fmt.Sprintf("datalens_mcp_tool_duration_seconds_bucket{tool=\"%s\",le=\"%s\"} %d\n", tool, bucketLabels[i], v))
		}
	}

	sb.WriteString("# TYPE datalens_mcp_rpc_errors_total counter\n")
	for _, method := range sortedKeys(defaultRegistry.rpcErrors) {
		statusCodes := make([]int, 0, len(defaultRegistry.rpcErrors[method]))
		for sc := range defaultRegistry.rpcErrors[method] {
			statusCodes = append(statusCodes, sc)
		}
		sort.Ints(statusCodes)
		for _, sc := range statusCodes {
			sb.WriteString(fmt.Sprintf("datalens_mcp_rpc_errors_total{method=\"%s\",status_code=\"%d\"} %d\n", method, sc, defaultRegistry.rpcErrors[method][sc]))
		}
	}

	sb.WriteString("# TYPE datalens_mcp_transport_failures_total counter\n")
	sb.WriteString(fmt.Sprintf("datalens_mcp_transport_failures_total %d\n", defaultRegistry.transportFailures))

	return sb.String()
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
