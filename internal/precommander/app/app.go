// Package app wires the command engine together and runs the operator loop.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bdobrica/precommander/common/ready"
	"github.com/bdobrica/precommander/common/redact"
	"github.com/bdobrica/precommander/common/trace"
	"github.com/bdobrica/precommander/internal/precommander/audit"
	"github.com/bdobrica/precommander/internal/precommander/commands"
	"github.com/bdobrica/precommander/internal/precommander/config"
	"github.com/bdobrica/precommander/internal/precommander/console"
	"github.com/bdobrica/precommander/internal/precommander/locate"
	"github.com/bdobrica/precommander/internal/precommander/matrix"
	"github.com/bdobrica/precommander/internal/precommander/mutate"
	"github.com/bdobrica/precommander/internal/precommander/transport"
	"github.com/bdobrica/precommander/internal/precommander/xchat"
)

// App is a configured engine. Attach must succeed before Exec or Run.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	transport  *transport.Client
	dispatcher *commands.Dispatcher
	matrix     *matrix.Client
	console    *console.Console

	// now is overridable in tests.
	now func() time.Time
}

// Option customizes New.
type Option func(*App)

// WithClock replaces the clock used for ban windows.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New builds every component from cfg. No request is made yet.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	profile, err := cfg.LoadProfile()
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	a.transport, err = transport.New(transport.Options{
		BaseURL:        cfg.BaseURL,
		Cookie:         cfg.Cookie,
		Timeout:        cfg.RequestTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
		Burst:          cfg.RequestBurst,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	client, err := xchat.New(xchat.Options{
		BaseURL:   cfg.BaseURL,
		Requester: a.transport,
		Executor:  mutate.New(a.transport, cfg.ConfirmDelay, logger),
		Locator:   locate.New(cfg.MaxPages, logger),
		Profile:   profile,
		Now:       a.now,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	var notifier audit.Notifier = audit.Noop{}
	if cfg.Matrix.Enabled() {
		a.matrix, err = matrix.New(matrix.Config{
			Homeserver:  cfg.Matrix.Homeserver,
			UserID:      cfg.Matrix.UserID,
			AccessToken: cfg.Matrix.AccessToken,
		}, logger)
		if err != nil {
			return nil, err
		}
		notifier = audit.NewMatrixNotifier(a.matrix, cfg.Matrix.AuditRoom, logger)
	}

	a.dispatcher = commands.NewDispatcher(commands.Options{
		Handlers: commands.Handlers(client),
		ReportTo: cfg.ReportTo,
		Notifier: notifier,
		Logger:   logger,
	})
	return a, nil
}

// Attach waits for the chat text page and derives the session from it. The
// audit room is joined best effort.
func (a *App) Attach(ctx context.Context) error {
	if a.cfg.PagePath == "" {
		return errors.New("PRECOMMANDER_PAGE_PATH is required")
	}
	pageURL := strings.TrimRight(a.cfg.BaseURL, "/") + "/" + strings.TrimLeft(a.cfg.PagePath, "/")

	c, err := console.Attach(ctx, console.Options{
		PageURL:   pageURL,
		Requester: a.transport,
		Ready: ready.Config{
			Interval:    a.cfg.AttachInterval,
			MaxAttempts: a.cfg.AttachMaxAttempts,
		},
		Logger: a.logger,
	})
	if err != nil {
		return err
	}
	a.console = c

	if a.matrix != nil {
		if err := a.matrix.JoinRoom(ctx, a.cfg.Matrix.AuditRoom); err != nil {
			a.logger.Warn("audit room unavailable; outcomes will not be mirrored", "err", err)
		}
	}
	return nil
}

// Dispatcher exposes the command dispatcher.
func (a *App) Dispatcher() *commands.Dispatcher { return a.dispatcher }

// Exec processes one line: a recognized command is replaced by its reply,
// anything else is submitted unchanged. Exactly one line is sent either way;
// it is also written to out when out is non-nil.
func (a *App) Exec(ctx context.Context, line string, out io.Writer) error {
	if a.console == nil {
		return errors.New("not attached")
	}
	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	return a.dispatcher.Submit(ctx, a.console.Session(), line, func(ctx context.Context, text string) error {
		if err := a.console.Submit(ctx, text); err != nil {
			return err
		}
		if out != nil {
			fmt.Fprintln(out, text)
		}
		return nil
	})
}

// Run reads lines from in until EOF or ctx is done and Execs each non-empty
// one. A failed line is reported and the loop continues.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	sess := a.console.Session()
	a.logger.Info("precommander ready", "actor", sess.ActingNick, "room", sess.RoomID,
		"base_url", redact.URL(a.cfg.BaseURL))

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := a.Exec(ctx, line, out); err != nil {
				msg := redact.String(err.Error(), a.cfg.Cookie, sess.Prefix)
				a.logger.Error("line not submitted", "err", msg)
				fmt.Fprintf(out, "! %s\n", msg)
			}
		}
	}
}
