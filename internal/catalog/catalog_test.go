package catalog

import (
	"errors"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if reg.SnapshotDate == "" || reg.SourceURL == "" {
		t.Fatalf("snapshot metadata incomplete: date=%q source=%q", reg.SnapshotDate, reg.SourceURL)
	}
	if len(reg.Methods) == 0 {
		t.Fatal("snapshot has no methods")
	}
}

func TestListPreservesDeclarationOrder(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}

	list := reg.List()
	if list[0].Method != "listDirectory" {
		t.Fatalf("expected listDirectory first, got %q", list[0].Method)
	}

	// Every listed method must round-trip through Lookup to the same entry.
	for _, m := range list {
		got, err := reg.Lookup(m.Method)
		if err != nil {
			t.Fatalf("lookup %q: %v", m.Method, err)
		}
		if got.InvokeWith != m.InvokeWith || got.TypedTool != m.TypedTool {
			t.Fatalf("lookup %q returned different invocation hints", m.Method)
		}
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}

	m, err := reg.Lookup("GETDATASET")
	if err != nil {
		t.Fatalf("expected case-insensitive match, got %v", err)
	}
	if m.Method != "getDataset" {
		t.Fatalf("expected canonical name getDataset, got %q", m.Method)
	}
}

func TestLookupUnknownMethod(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}

	_, err = reg.Lookup("noSuchMethod")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !strings.Contains(notFound.Hint(), "datalens_list_methods") {
		t.Fatalf("hint should point at the discovery tool, got %q", notFound.Hint())
	}
}

func TestTypedMethodsCarryToolNames(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}

	typed := 0
	for _, m := range reg.List() {
		if m.TypedTool == "" {
			continue
		}
		typed++
		if !strings.HasPrefix(m.TypedTool, "datalens_") {
			t.Fatalf("method %q has malformed tool name %q", m.Method, m.TypedTool)
		}
	}
	if typed != 15 {
		t.Fatalf("expected 15 typed tools in the snapshot, got %d", typed)
	}
}
