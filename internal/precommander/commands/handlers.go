package commands

import (
	"context"

	"github.com/bdobrica/precommander/internal/precommander/failure"
	"github.com/bdobrica/precommander/internal/precommander/xchat"
)

// Recognized command names.
const (
	CmdNote      = "note"
	CmdUnnote    = "unnote"
	CmdShowIP    = "showip"
	CmdBan       = "ban"
	CmdUnban     = "unban"
	CmdClearNick = "clearnick"
)

// Moderator is the console surface the handlers drive. *xchat.Client
// implements it.
type Moderator interface {
	SaveNote(ctx context.Context, sess xchat.Session, nick, description string) error
	RemoveNote(ctx context.Context, sess xchat.Session, nick string) error
	ShowIP(ctx context.Context, sess xchat.Session, nick string) (xchat.IPInfo, error)
	Ban(ctx context.Context, sess xchat.Session, nick, reason string) error
	Unban(ctx context.Context, sess xchat.Session, nick string) (xchat.UnbanResult, error)
	ClearText(ctx context.Context, sess xchat.Session, nick string) error
}

// Outcome is what one handler invocation produced. Err nil means success.
type Outcome struct {
	// Target is the nickname the command acted on, empty if none was given.
	Target string
	Err    error
	// IP is set by a successful showip.
	IP xchat.IPInfo
	// Removed and Found are set by unban.
	Removed int
	Found   int
}

// OK reports whether the command succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Handler executes one command. It must always return an Outcome; errors
// travel inside it.
type Handler interface {
	Execute(ctx context.Context, sess xchat.Session, args string) Outcome
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, sess xchat.Session, args string) Outcome

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, sess xchat.Session, args string) Outcome {
	return f(ctx, sess, args)
}

// Handlers returns the capability table for the moderation commands.
func Handlers(m Moderator) map[string]Handler {
	return map[string]Handler{
		CmdNote:      &noteHandler{m: m},
		CmdUnnote:    &unnoteHandler{m: m},
		CmdShowIP:    &showIPHandler{m: m},
		CmdBan:       &banHandler{m: m},
		CmdUnban:     &unbanHandler{m: m},
		CmdClearNick: &clearNickHandler{m: m},
	}
}

func missingNick(cmd string) Outcome {
	return Outcome{Err: failure.NewMissingArgument(cmd, "nick")}
}

type noteHandler struct{ m Moderator }

// Execute saves args' free text as the note; an empty note is allowed.
func (h *noteHandler) Execute(ctx context.Context, sess xchat.Session, args string) Outcome {
	nick, desc := SplitTarget(args)
	if nick == "" {
		return missingNick(CmdNote)
	}
	return Outcome{Target: nick, Err: h.m.SaveNote(ctx, sess, nick, desc)}
}

type unnoteHandler struct{ m Moderator }

func (h *unnoteHandler) Execute(ctx context.Context, sess xchat.Session, args string) Outcome {
	nick, _ := SplitTarget(args)
	if nick == "" {
		return missingNick(CmdUnnote)
	}
	return Outcome{Target: nick, Err: h.m.RemoveNote(ctx, sess, nick)}
}

type showIPHandler struct{ m Moderator }

func (h *showIPHandler) Execute(ctx context.Context, sess xchat.Session, args string) Outcome {
	nick, _ := SplitTarget(args)
	if nick == "" {
		return missingNick(CmdShowIP)
	}
	info, err := h.m.ShowIP(ctx, sess, nick)
	return Outcome{Target: nick, Err: err, IP: info}
}

type banHandler struct{ m Moderator }

// Execute requires a reason; the block record is never created without one.
func (h *banHandler) Execute(ctx context.Context, sess xchat.Session, args string) Outcome {
	nick, reason := SplitTarget(args)
	if nick == "" {
		return missingNick(CmdBan)
	}
	if reason == "" {
		return Outcome{Target: nick, Err: failure.NewMissingArgument(CmdBan, "reason")}
	}
	return Outcome{Target: nick, Err: h.m.Ban(ctx, sess, nick, reason)}
}

type unbanHandler struct{ m Moderator }

func (h *unbanHandler) Execute(ctx context.Context, sess xchat.Session, args string) Outcome {
	nick, _ := SplitTarget(args)
	if nick == "" {
		return missingNick(CmdUnban)
	}
	res, err := h.m.Unban(ctx, sess, nick)
	return Outcome{Target: nick, Err: err, Removed: res.Removed, Found: res.Found}
}

type clearNickHandler struct{ m Moderator }

func (h *clearNickHandler) Execute(ctx context.Context, sess xchat.Session, args string) Outcome {
	nick, _ := SplitTarget(args)
	if nick == "" {
		return missingNick(CmdClearNick)
	}
	return Outcome{Target: nick, Err: h.m.ClearText(ctx, sess, nick)}
}
