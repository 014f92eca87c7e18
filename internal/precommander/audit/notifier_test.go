package audit_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/precommander/common/trace"
	"github.com/bdobrica/precommander/internal/precommander/audit"
)

type fakeSender struct {
	rooms   []string
	notices []string
	err     error
}

func (f *fakeSender) SendNotice(_ context.Context, room, msg string) error {
	f.rooms = append(f.rooms, room)
	f.notices = append(f.notices, msg)
	return f.err
}

func TestMatrixNotifier_SendsNotice(t *testing.T) {
	sender := &fakeSender{}
	n := audit.NewMatrixNotifier(sender, "!audit:example.com", nil)

	n.Notify(context.Background(), audit.Event{
		Kind:      audit.KindUserBanned,
		Actor:     "mod",
		Target:    "carol",
		Message:   "Uživatel carol byl zablokován",
		TraceID:   "t_abc123",
		Timestamp: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
	})

	if len(sender.notices) != 1 {
		t.Fatalf("expected 1 notice, got %d", len(sender.notices))
	}
	if sender.rooms[0] != "!audit:example.com" {
		t.Errorf("room = %q", sender.rooms[0])
	}
	msg := sender.notices[0]
	for _, want := range []string{"carol", "byl zablokován", "t_abc123", "actor: mod", "2026-03-05T10:00:00Z"} {
		if !strings.Contains(msg, want) {
			t.Errorf("notice missing %q: %q", want, msg)
		}
	}
}

func TestMatrixNotifier_TraceFromContext(t *testing.T) {
	sender := &fakeSender{}
	n := audit.NewMatrixNotifier(sender, "!audit:example.com", nil)

	ctx := trace.WithTraceID(context.Background(), "t_fromctx")
	n.Notify(ctx, audit.Event{Kind: audit.KindCommandFailed, Message: "boom"})

	if len(sender.notices) != 1 || !strings.Contains(sender.notices[0], "t_fromctx") {
		t.Fatalf("notices = %q", sender.notices)
	}
	if !strings.Contains(sender.notices[0], "[command.failed]") {
		t.Errorf("untargeted notice should carry the kind: %q", sender.notices[0])
	}
}

func TestMatrixNotifier_NoopWhenEmptyRoom(t *testing.T) {
	sender := &fakeSender{}
	n := audit.NewMatrixNotifier(sender, "", nil)

	n.Notify(context.Background(), audit.Event{Kind: audit.KindNoteSaved, Message: "saved"})

	if len(sender.notices) != 0 {
		t.Fatalf("expected no notices for empty room, got %d", len(sender.notices))
	}
}

func TestMatrixNotifier_SendErrorIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("homeserver down")}
	n := audit.NewMatrixNotifier(sender, "!audit:example.com", nil)

	// Must not panic or block.
	n.Notify(context.Background(), audit.Event{Kind: audit.KindTextCleared, Target: "dave", Message: "cleared"})
	if len(sender.notices) != 1 {
		t.Fatalf("expected one attempt, got %d", len(sender.notices))
	}
}

func TestNoop(t *testing.T) {
	audit.Noop{}.Notify(context.Background(), audit.Event{Kind: audit.KindCommandFailed, Message: "boom"})
}
