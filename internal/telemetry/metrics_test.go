package telemetry

import (
	"strings"
	"testing"
	"time"
)

func TestRenderPrometheus(t *testing.T) {
	IncToolCall("datalens_get_dataset", "ok")
	IncToolCall("datalens_get_dataset", "ok")
	IncToolCall("datalens_rpc", "upstream_status")
	ObserveToolDuration("datalens_get_dataset", 200*time.Millisecond)
	IncRPCError("getDataset", 403)
	IncTransportFailure()

	out := RenderPrometheus()

	for _, want := range []string{
		`datalens_mcp_tool_calls_total{tool="datalens_get_dataset",status="ok"} 2`,
		`datalens_mcp_tool_calls_total{tool="datalens_rpc",status="upstream_status"} 1`,
		`datalens_mcp_tool_duration_seconds_bucket{tool="datalens_get_dataset",le="0.5"} 1`,
		`datalens_mcp_rpc_errors_total{method="getDataset",status_code="403"} 1`,
		"# TYPE datalens_mcp_transport_failures_total counter",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered output missing %q:\n%s", want, out)
		}
	}
}
