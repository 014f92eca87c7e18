// Package audit mirrors moderation command outcomes to an optional Matrix
// room.
//
// When MATRIX_AUDIT_ROOM is set, every recognized command posts a
// one-line notice with the target, the outcome, the operator and the trace id
// of the invocation. Posting is best effort: failures are logged and never
// reach the operator's reply.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bdobrica/precommander/common/trace"
)

// Kind is a machine-readable event category.
type Kind string

const (
	KindNoteSaved     Kind = "note.saved"
	KindNoteRemoved   Kind = "note.removed"
	KindIPShown       Kind = "user.ip_shown"
	KindUserBanned    Kind = "user.banned"
	KindUserUnbanned  Kind = "user.unbanned"
	KindTextCleared   Kind = "user.text_cleared"
	KindCommandFailed Kind = "command.failed"
)

// Event carries the data that the audit notifier formats and sends.
type Event struct {
	Kind Kind
	// Actor is the operator's nickname.
	Actor string
	// Target is the moderated nickname, if any.
	Target string
	// Message is the reply body the operator received.
	Message string
	// TraceID defaults to the one on the context.
	TraceID string
	// Timestamp defaults to time.Now() when zero.
	Timestamp time.Time
}

// Notifier receives command outcomes.
type Notifier interface {
	// Notify posts an audit event. Send failures are logged, not returned.
	// Implementations MUST NOT block the caller past ctx's deadline.
	Notify(ctx context.Context, evt Event)
}

// Sender is the subset of the Matrix client needed by MatrixNotifier.
type Sender interface {
	SendNotice(ctx context.Context, roomID, message string) error
}

// MatrixNotifier posts formatted notices to a Matrix audit room.
type MatrixNotifier struct {
	sender Sender
	roomID string
	logger *slog.Logger
}

// NewMatrixNotifier creates a MatrixNotifier that posts to roomID via sender.
func NewMatrixNotifier(sender Sender, roomID string, logger *slog.Logger) *MatrixNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatrixNotifier{sender: sender, roomID: roomID, logger: logger}
}

// Notify formats evt as a notice and posts it to the audit room.
func (n *MatrixNotifier) Notify(ctx context.Context, evt Event) {
	if n.roomID == "" {
		return
	}
	log := trace.Logger(ctx, n.logger)

	tid := evt.TraceID
	if tid == "" {
		tid = trace.FromContext(ctx)
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	icon := kindIcon(evt.Kind)
	msg := fmt.Sprintf("%s [%s] %s", icon, evt.Kind, evt.Message)
	if evt.Target != "" {
		msg = fmt.Sprintf("%s %s: %s", icon, evt.Target, evt.Message)
	}
	msg = fmt.Sprintf("%s\n  at: %s", msg, evt.Timestamp.Format(time.RFC3339))
	if tid != "" {
		msg = fmt.Sprintf("%s\n  trace: %s", msg, tid)
	}
	if evt.Actor != "" {
		msg = fmt.Sprintf("%s\n  actor: %s", msg, evt.Actor)
	}

	if err := n.sender.SendNotice(ctx, n.roomID, msg); err != nil {
		log.Warn("audit notifier: failed to send room notice", "room", n.roomID, "kind", evt.Kind, "err", err)
		return
	}
	log.Debug("audit notifier: sent notice", "room", n.roomID, "kind", evt.Kind)
}

// Noop is used when the audit room is not configured.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(context.Context, Event) {}

func kindIcon(k Kind) string {
	switch k {
	case KindNoteSaved:
		return "📝"
	case KindNoteRemoved:
		return "🗑️"
	case KindIPShown:
		return "🔎"
	case KindUserBanned:
		return "🚫"
	case KindUserUnbanned:
		return "✅"
	case KindTextCleared:
		return "🧹"
	case KindCommandFailed:
		return "🚨"
	default:
		return "ℹ️"
	}
}
