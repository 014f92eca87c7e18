// Package mutate performs side-effecting writes against the console and
// decides whether they took effect.
//
// A create is confirmed by a known success phrase in the response body. A
// delete is modelled as two phases: Delete issues the request exactly once,
// VerifyAbsent rereads the listing (at most twice) until the record is gone.
// The delete request itself is never repeated.
package mutate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/bdobrica/precommander/common/redact"
	"github.com/bdobrica/precommander/common/retry"
	"github.com/bdobrica/precommander/common/trace"
	"github.com/bdobrica/precommander/internal/precommander/failure"
	"github.com/bdobrica/precommander/internal/precommander/transport"
)

// confirmReads is the total number of rereads a delete confirmation may use:
// the first one plus exactly one additional.
const confirmReads = 2

var errStillPresent = errors.New("record still present")

// Requester is the transport surface the executor needs.
type Requester interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
	PostForm(ctx context.Context, rawURL string, fields url.Values) (*transport.Response, error)
}

// PresenceProbe rereads state and reports whether the deleted record is still
// visible.
type PresenceProbe func(ctx context.Context) (present bool, err error)

// Executor runs writes.
type Executor struct {
	req          Requester
	confirmDelay time.Duration
	logger       *slog.Logger
}

// New returns an Executor. confirmDelay is the wait before the second reread.
func New(req Requester, confirmDelay time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{req: req, confirmDelay: confirmDelay, logger: logger}
}

// Create describes a create-or-update write.
type Create struct {
	// Op names the step for logs and failures.
	Op     string
	URL    string
	Fields url.Values
	// Markers are success phrases; any one present confirms the write.
	Markers []string
}

// Create posts the form and confirms it by marker. The caller only learns
// pass or fail; a write that may have partially applied is a failure.
func (e *Executor) Create(ctx context.Context, c Create) error {
	log := trace.Logger(ctx, e.logger)

	resp, err := e.req.PostForm(ctx, c.URL, c.Fields)
	if err != nil {
		return err
	}
	for _, m := range c.Markers {
		if m != "" && strings.Contains(resp.Body, m) {
			log.Debug("mutate: write confirmed by marker", "op", c.Op)
			return nil
		}
	}
	log.Warn("mutate: write not confirmed by server", "op", c.Op, "url", redact.URL(c.URL))
	return failure.NewUnconfirmed(c.Op, "not confirmed by server")
}

// Delete issues the delete request once. Its response is not trusted as a
// confirmation; callers follow it with VerifyAbsent.
func (e *Executor) Delete(ctx context.Context, op, actionURL string) error {
	if _, err := e.req.Get(ctx, actionURL); err != nil {
		return err
	}
	trace.Logger(ctx, e.logger).Debug("mutate: delete issued", "op", op, "url", redact.URL(actionURL))
	return nil
}

// VerifyAbsent rereads state via probe until the record is gone, using at
// most two reads. A reread that fails at the transport level counts as "not
// confirmed" rather than success.
func (e *Executor) VerifyAbsent(ctx context.Context, op string, probe PresenceProbe) error {
	log := trace.Logger(ctx, e.logger)

	reads := 0
	err := retry.Do(ctx, retry.Config{MaxAttempts: confirmReads, Delay: e.confirmDelay}, func() error {
		reads++
		present, err := probe(ctx)
		if err != nil {
			return err
		}
		if present {
			return errStillPresent
		}
		return nil
	})
	if err == nil {
		log.Debug("mutate: delete confirmed by reread", "op", op, "reads", reads)
		return nil
	}

	log.Warn("mutate: delete not confirmed", "op", op, "reads", reads, "err", err)
	return &failure.Error{Kind: failure.KindUnconfirmed, Op: op, Detail: "still present after delete", Err: err}
}

// DeleteRequest is one delete plus its confirmation probe.
type DeleteRequest struct {
	Op        string
	ActionURL string
	Probe     PresenceProbe
}

// DeleteConfirmed runs Delete then VerifyAbsent.
func (e *Executor) DeleteConfirmed(ctx context.Context, d DeleteRequest) error {
	if err := e.Delete(ctx, d.Op, d.ActionURL); err != nil {
		return err
	}
	return e.VerifyAbsent(ctx, d.Op, d.Probe)
}

// DeleteAll runs every request independently and returns how many were
// confirmed together with the joined failures of the rest.
func (e *Executor) DeleteAll(ctx context.Context, reqs []DeleteRequest) (int, error) {
	removed := 0
	var errs []error
	for i, d := range reqs {
		if err := e.DeleteConfirmed(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("delete %d/%d: %w", i+1, len(reqs), err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
