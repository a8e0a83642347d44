package postgrest

import (
	"strings"
	"testing"
)

func TestQueryEncode(t *testing.T) {
	t.Parallel()

	q := NewQuery().
		Eq("branch_id", 2).
		Lte("days_remaining", 30).
		Order("days_remaining.asc").
		Limit(10)

	got := q.Encode()
	want := "branch_id=eq.2&days_remaining=lte.30&order=days_remaining.asc&limit=10"
	if got != want {
		t.Fatalf("Encode() = %q, want %q", got, want)
	}
}

func TestQueryEncodeEscapes(t *testing.T) {
	t.Parallel()

	got := NewQuery().Ilike("name", "*hour jungle*").Encode()
	if strings.Contains(got, " ") {
		t.Fatalf("Encode() left unescaped space: %q", got)
	}
	if !strings.Contains(got, "name=ilike.%2Ahour+jungle%2A") {
		t.Fatalf("Encode() = %q", got)
	}
}

func TestQueryOrGroup(t *testing.T) {
	t.Parallel()

	q := NewQuery().Or("name.ilike.*ab*", "phone.ilike.*ab*")
	got := q.Encode()
	if !strings.Contains(got, "or=") {
		t.Fatalf("Encode() = %q, want an or group", got)
	}
	if !strings.Contains(got, "%28name.ilike.%2Aab%2A%2Cphone.ilike.%2Aab%2A%29") {
		t.Fatalf("Encode() = %q", got)
	}
}

func TestQueryOrEmptyIsNoop(t *testing.T) {
	t.Parallel()

	if got := NewQuery().Or(); !got.IsEmpty() {
		t.Fatalf("Or() with no conditions should leave the query empty, got %q", got.Encode())
	}
}

func TestQueryImmutable(t *testing.T) {
	t.Parallel()

	base := NewQuery().Eq("id", 1)
	_ = base.Eq("status", "draft")

	if got := base.Encode(); got != "id=eq.1" {
		t.Fatalf("base query mutated: %q", got)
	}
}
