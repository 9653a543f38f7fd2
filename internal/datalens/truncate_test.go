package datalens

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateUTF8ShortStringUntouched(t *testing.T) {
	if got := TruncateUTF8("short", 2000); got != "short" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	exact := strings.Repeat("a", 10)
	if got := TruncateUTF8(exact, 10); got != exact {
		t.Fatalf("string at the limit must not be truncated, got %q", got)
	}
}

func TestTruncateUTF8AppendsMarker(t *testing.T) {
	got := TruncateUTF8(strings.Repeat("a", 50), 10)
	if got != strings.Repeat("a", 10)+"...(truncated)" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestTruncateUTF8NeverSplitsRunes(t *testing.T) {
	// "日" is 3 bytes; cutting at any byte offset must stay valid UTF-8.
	s := strings.Repeat("日", 20)
	for maxBytes := 1; maxBytes < len(s); maxBytes++ {
		got := TruncateUTF8(s, maxBytes)
		if !utf8.ValidString(got) {
			t.Fatalf("maxBytes=%d produced invalid UTF-8: %q", maxBytes, got)
		}
		body := strings.TrimSuffix(got, "...(truncated)")
		if len(body) > maxBytes {
			t.Fatalf("maxBytes=%d kept %d body bytes", maxBytes, len(body))
		}
	}
}
