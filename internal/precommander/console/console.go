// Package console attaches the engine to the legacy chat's text input page.
//
// The page carries everything the engine needs but never asks for: the
// session prefix in the form action, the room id in a hidden field and the
// operator's nickname in the form's label. Attach waits for that page, derives
// the Session once, and Submit replays the page's own form with a new message,
// the way a browser submission would.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/bdobrica/precommander/common/ready"
	"github.com/bdobrica/precommander/common/redact"
	"github.com/bdobrica/precommander/common/trace"
	"github.com/bdobrica/precommander/internal/precommander/failure"
	"github.com/bdobrica/precommander/internal/precommander/scan"
	"github.com/bdobrica/precommander/internal/precommander/transport"
	"github.com/bdobrica/precommander/internal/precommander/xchat"
)

const (
	formName = "f"
	opField  = "op"
	opValue  = "textpageng"
	msgField = "msg"
)

// Requester is the transport surface the console needs.
type Requester interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
	PostForm(ctx context.Context, rawURL string, fields url.Values) (*transport.Response, error)
}

// Page is what was derived from one load of the text page.
type Page struct {
	Session xchat.Session
	// Action is the absolute URL the text form posts to.
	Action string
	// Hidden holds the form's hidden inputs, replayed on every submit.
	Hidden url.Values
}

// Derive reads the Session and submit target from a parsed text page loaded
// from pageURL. ok is false when doc is not the text page (yet).
func Derive(doc *html.Node, pageURL *url.URL) (*Page, bool) {
	form := scan.FindForm(doc, formName)
	if form == nil {
		return nil, false
	}
	if op, _ := scan.InputValue(form, opField); op != opValue {
		return nil, false
	}

	action := pageURL
	if raw := strings.TrimSpace(scan.Attr(form, "action")); raw != "" {
		u, err := pageURL.Parse(raw)
		if err != nil {
			return nil, false
		}
		action = u
	}
	prefix, _, _ := strings.Cut(strings.TrimPrefix(action.Path, "/"), "/")

	nick := ""
	if strong := scan.Find(form, func(n *html.Node) bool { return n.DataAtom == atom.Strong }); strong != nil {
		nick = strings.TrimSpace(strings.TrimSuffix(scan.Text(strong), ":"))
	}

	hidden := scan.HiddenFields(form)
	hidden.Del(msgField)

	room := 0
	for _, key := range []string{"rid", "id_room"} {
		if v, err := strconv.Atoi(hidden.Get(key)); err == nil && v > 0 {
			room = v
			break
		}
	}

	sess := xchat.Session{Prefix: prefix, RoomID: room, ActingNick: nick}
	if !sess.Valid() || nick == "" {
		return nil, false
	}
	return &Page{Session: sess, Action: action.String(), Hidden: hidden}, true
}

// Options configures Attach.
type Options struct {
	// PageURL is the absolute URL of the text page.
	PageURL   string
	Requester Requester
	Ready     ready.Config
	// Encoding encodes submitted field values. Defaults to ISO-8859-2, the
	// charset the legacy form is served in.
	Encoding encoding.Encoding
	Logger   *slog.Logger
}

// Console is an attached text page.
type Console struct {
	pageURL *url.URL
	req     Requester
	ready   ready.Config
	enc     encoding.Encoding
	logger  *slog.Logger

	mu   sync.Mutex
	page *Page
}

// Attach waits until the text page can be loaded and derived.
func Attach(ctx context.Context, opts Options) (*Console, error) {
	u, err := url.Parse(opts.PageURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("console: invalid page URL %q", redact.URL(opts.PageURL))
	}
	if opts.Requester == nil {
		return nil, fmt.Errorf("console: requester is required")
	}
	enc := opts.Encoding
	if enc == nil {
		enc = charmap.ISO8859_2
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Console{pageURL: u, req: opts.Requester, ready: opts.Ready, enc: enc, logger: logger}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh re-derives the Session, e.g. after the host page navigated.
func (c *Console) Refresh(ctx context.Context) error {
	log := trace.Logger(ctx, c.logger)

	page, err := ready.Wait(ctx, c.ready, func(ctx context.Context) (*Page, bool, error) {
		resp, err := c.req.Get(ctx, c.pageURL.String())
		if err != nil {
			// The page not being there yet is what we are waiting for; only a
			// malformed document aborts.
			log.Debug("console: text page not available", "kind", failure.KindOf(err), "err", err)
			return nil, false, nil
		}
		doc, err := scan.Parse(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("console: parse text page: %w", err)
		}
		base := resp.URL
		if base == nil {
			base = c.pageURL
		}
		p, ok := Derive(doc, base)
		return p, ok, nil
	})
	if err != nil {
		return fmt.Errorf("console: attach %s: %w", redact.URL(c.pageURL.String()), err)
	}

	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
	log.Info("console: attached", "actor", page.Session.ActingNick, "room", page.Session.RoomID)
	return nil
}

// Session returns the derived Session.
func (c *Console) Session() xchat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.Session
}

// Submit posts text through the page's form together with its hidden fields.
// When the response is again the text page its fresh hidden fields are kept
// for the next submit.
func (c *Console) Submit(ctx context.Context, text string) error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()

	fields := url.Values{}
	for k, vs := range page.Hidden {
		for _, v := range vs {
			fields.Add(k, c.encode(v))
		}
	}
	fields.Set(msgField, c.encode(text))

	resp, err := c.req.PostForm(ctx, page.Action, fields)
	if err != nil {
		return fmt.Errorf("console: submit: %w", err)
	}
	trace.Logger(ctx, c.logger).Debug("console: submitted", "url", redact.URL(page.Action), "bytes", len(text))

	if doc, err := scan.Parse(resp.Body); err == nil && resp.URL != nil {
		if next, ok := Derive(doc, resp.URL); ok && next.Session.Prefix == page.Session.Prefix {
			c.mu.Lock()
			c.page = next
			c.mu.Unlock()
		}
	}
	return nil
}

// encode converts v to the form's charset; characters it cannot represent
// are replaced rather than failing the submit.
func (c *Console) encode(v string) string {
	out, err := encoding.ReplaceUnsupported(c.enc.NewEncoder()).String(v)
	if err != nil {
		return v
	}
	return out
}
