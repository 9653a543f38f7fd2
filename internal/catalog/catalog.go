// Package catalog exposes the embedded snapshot of known DataLens RPC methods.
// The snapshot is versioned data, not code: adding a remote method is an edit
// to the embedded JSON, and every consumer (tool listing, schema lookup, input
// validation hints) reads the same table.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed snapshot/datalens-rpc-methods.json
var rawSnapshot []byte

// Registry is the decoded method snapshot. Built once, read-only afterwards.
type Registry struct {
	SnapshotDate   string   `json:"snapshotDate"`
	SourceURL      string   `json:"sourceUrl"`
	OpenAPIVersion string   `json:"openapiVersion"`
	APIInfo        any      `json:"apiInfo"`
	Methods        []Method `json:"methods"`
}

// Method is one catalog entry. InvokeWith names the tool a caller should use;
// TypedTool is empty for methods reachable only through the generic rpc tool.
type Method struct {
	Method          string `json:"method"`
	Category        string `json:"category"`
	Experimental    bool   `json:"experimental"`
	TypedTool       string `json:"typedTool"`
	InvokeWith      string `json:"invokeWith"`
	Summary         string `json:"summary"`
	Description     string `json:"description"`
	RequestSchema   any    `json:"requestSchema"`
	RequestExample  any    `json:"requestExample"`
	ResponseExample any    `json:"responseExample"`
}

// NotFoundError carries the hint callers need to recover from a bad method name.
type NotFoundError struct {
	Method string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown DataLens RPC method: %s", e.Method)
}

// Hint tells the caller how to discover valid method names.
func (e *NotFoundError) Hint() string {
	return "Call datalens_list_methods first to discover valid methods."
}

var load = sync.OnceValues(func() (*Registry, error) {
	var reg Registry
	if err := json.Unmarshal(rawSnapshot, &reg); err != nil {
		return nil, fmt.Errorf("decode embedded method snapshot: %w", err)
	}
	if err := reg.validate(); err != nil {
		return nil, fmt.Errorf("embedded method snapshot: %w", err)
	}
	return &reg, nil
})

// Load returns the process-wide registry, decoding the embedded snapshot on
// first use.
func Load() (*Registry, error) {
	return load()
}

// List returns all methods in declaration order. The returned slice is shared;
// callers must not mutate it.
func (r *Registry) List() []Method {
	return r.Methods
}

// Lookup finds a method by name, case-insensitively.
func (r *Registry) Lookup(method string) (*Method, error) {
	for i := range r.Methods {
		if strings.EqualFold(r.Methods[i].Method, method) {
			return &r.Methods[i], nil
		}
	}
	return nil, &NotFoundError{Method: method}
}

// validate enforces the snapshot invariants: method names unique
// case-insensitively, typed tool names unique.
func (r *Registry) validate() error {
	methods := make(map[string]bool, len(r.Methods))
	tools := make(map[string]bool)
	for _, m := range r.Methods {
		if m.Method == "" {
			return fmt.Errorf("entry with empty method name")
		}
		key := strings.ToLower(m.Method)
		if methods[key] {
			return fmt.Errorf("duplicate method %q", m.Method)
		}
		methods[key] = true
		if m.TypedTool != "" {
			if tools[m.TypedTool] {
				return fmt.Errorf("duplicate typed tool %q", m.TypedTool)
			}
			tools[m.TypedTool] = true
		}
		if m.Category != "read" && m.Category != "write" {
			return fmt.Errorf("method %q has invalid category %q", m.Method, m.Category)
		}
	}
	return nil
}
