package trace_test

import (
	"context"
	"strings"
	"testing"

	"github.com/bdobrica/precommander/common/trace"
)

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := trace.GenerateID()
		if !strings.HasPrefix(id, "t_") {
			t.Fatalf("id %q missing t_ prefix", id)
		}
		if len(id) != 18 {
			t.Fatalf("id %q: got length %d, want 18", id, len(id))
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := trace.FromContext(ctx); got != "" {
		t.Fatalf("empty context: got %q", got)
	}
	ctx = trace.WithTraceID(ctx, "t_abc")
	if got := trace.FromContext(ctx); got != "t_abc" {
		t.Fatalf("got %q, want t_abc", got)
	}
}
