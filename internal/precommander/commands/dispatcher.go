package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bdobrica/precommander/common/trace"
	"github.com/bdobrica/precommander/internal/precommander/audit"
	"github.com/bdobrica/precommander/internal/precommander/failure"
	"github.com/bdobrica/precommander/internal/precommander/xchat"
)

// State is the dispatcher's position in the command lifecycle.
type State int32

const (
	StateIdle State = iota
	StateParsing
	StateExecuting
	StateReplying
)

func (s State) String() string {
	switch s {
	case StateParsing:
		return "parsing"
	case StateExecuting:
		return "executing"
	case StateReplying:
		return "replying"
	default:
		return "idle"
	}
}

// DefaultNotifyTimeout bounds one audit notification.
const DefaultNotifyTimeout = 5 * time.Second

// SubmitFunc transmits one line through the host chat.
type SubmitFunc func(ctx context.Context, text string) error

// Options configures a Dispatcher.
type Options struct {
	Handlers map[string]Handler
	// ReportTo overrides the reply recipient (default: the acting nick).
	ReportTo string
	// Notifier mirrors outcomes of recognized commands. Defaults to audit.Noop.
	Notifier audit.Notifier
	// NotifyTimeout bounds each Notify call. Defaults to DefaultNotifyTimeout.
	NotifyTimeout time.Duration
	Logger        *slog.Logger
}

// Dispatcher runs at most one command at a time for its document instance.
type Dispatcher struct {
	// mu is held from Parsing until the reply is submitted.
	mu       sync.Mutex
	state    atomic.Int32
	handlers map[string]Handler
	format        Formatter
	notifier      audit.Notifier
	notifyTimeout time.Duration
	logger        *slog.Logger
}

// NewDispatcher returns an idle Dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = audit.Noop{}
	}
	notifyTimeout := opts.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = DefaultNotifyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handlers := make(map[string]Handler, len(opts.Handlers))
	for name, h := range opts.Handlers {
		handlers[name] = h
	}
	return &Dispatcher{
		handlers:      handlers,
		format:        Formatter{ReportTo: opts.ReportTo},
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		logger:        logger,
	}
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State { return State(d.state.Load()) }

func (d *Dispatcher) setState(s State) { d.state.Store(int32(s)) }

// Handle processes one submitted line. intercepted is false when text is not a
// recognized command, in which case reply is empty, nothing was requested from
// the console and the caller must forward text unchanged.
func (d *Dispatcher) Handle(ctx context.Context, sess xchat.Session, text string) (reply string, intercepted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.setState(StateIdle)

	reply, intercepted = d.handle(ctx, sess, text)
	return reply, intercepted
}

// Submit processes text and calls submit exactly once: with the reply when the
// line was a recognized command, or with text itself otherwise.
func (d *Dispatcher) Submit(ctx context.Context, sess xchat.Session, text string, submit SubmitFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.setState(StateIdle)

	reply, intercepted := d.handle(ctx, sess, text)
	if !intercepted {
		return submit(ctx, text)
	}
	if err := submit(ctx, reply); err != nil {
		return fmt.Errorf("submit reply: %w", err)
	}
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, sess xchat.Session, text string) (string, bool) {
	d.setState(StateParsing)
	cmd, err := Parse(text)
	if err != nil {
		return "", false
	}
	h, ok := d.handlers[cmd.Name]
	if !ok {
		return "", false
	}

	// Once started a command runs to completion; only the transport timeout
	// bounds it.
	ctx = context.WithoutCancel(ctx)
	if trace.FromContext(ctx) == "" {
		ctx = trace.WithTraceID(ctx, trace.GenerateID())
	}
	log := trace.Logger(ctx, d.logger).With("command", cmd.Name, "actor", sess.ActingNick)

	d.setState(StateExecuting)
	start := time.Now()
	out, unhandled := d.execute(ctx, log, h, sess, cmd)

	d.setState(StateReplying)
	reply := d.format.Format(sess, cmd.Name, out)
	if unhandled {
		reply = d.format.Unhandled(sess)
	}

	if out.OK() {
		log.Info("command succeeded", "target", out.Target, "elapsed", time.Since(start))
	} else {
		log.Info("command failed", "target", out.Target, "kind", failure.KindOf(out.Err),
			"err", out.Err, "elapsed", time.Since(start))
	}

	notifyCtx, cancel := context.WithTimeout(ctx, d.notifyTimeout)
	defer cancel()
	d.notifier.Notify(notifyCtx, audit.Event{
		Kind:    auditKind(cmd.Name, out),
		Actor:   sess.ActingNick,
		Target:  out.Target,
		Message: Body(cmd.Name, out),
	})
	return reply, true
}

// execute runs h. A panic or an unusable session becomes an unhandled
// failure and the generic reply.
func (d *Dispatcher) execute(ctx context.Context, log *slog.Logger, h Handler, sess xchat.Session, cmd *Command) (out Outcome, unhandled bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", "panic", r, "stack", string(debug.Stack()))
			out = Outcome{Err: &failure.Error{Kind: failure.KindUnhandled, Op: cmd.Name, Err: fmt.Errorf("panic: %v", r)}}
			unhandled = true
		}
	}()

	if !sess.Valid() {
		return Outcome{Err: &failure.Error{Kind: failure.KindUnhandled, Op: cmd.Name, Err: errInvalidSession}}, true
	}
	return h.Execute(ctx, sess, cmd.Args), false
}

var errInvalidSession = errors.New("session context has no usable prefix")

func auditKind(cmd string, out Outcome) audit.Kind {
	if !out.OK() {
		return audit.KindCommandFailed
	}
	switch cmd {
	case CmdNote:
		return audit.KindNoteSaved
	case CmdUnnote:
		return audit.KindNoteRemoved
	case CmdShowIP:
		return audit.KindIPShown
	case CmdBan:
		return audit.KindUserBanned
	case CmdUnban:
		return audit.KindUserUnbanned
	case CmdClearNick:
		return audit.KindTextCleared
	default:
		return audit.KindCommandFailed
	}
}
