// Package xchat implements the moderation operations of the legacy chat
// console: notes, user lookup, IP report, blacklist records and text purge.
//
// Every operation is addressed under the Session prefix and composed from the
// transport, scan, locate and mutate packages. Nothing here retries.
package xchat

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/bdobrica/precommander/internal/precommander/config"
	"github.com/bdobrica/precommander/internal/precommander/failure"
	"github.com/bdobrica/precommander/internal/precommander/locate"
	"github.com/bdobrica/precommander/internal/precommander/mutate"
	"github.com/bdobrica/precommander/internal/precommander/scan"
)

// Op names used in failures; the reply formatter keys phrasing off them.
const (
	OpNoteSave    = "notes.save"
	OpNotes       = "notes"
	OpNoteDelete  = "notes.delete"
	OpUserLookup  = "user.lookup"
	OpBlockIndex  = "user.block_index"
	OpBanCreate   = "blacklist.create"
	OpBlacklist   = "blacklist"
	OpBlockDelete = "blacklist.delete"
	OpClearText   = "cleartext"
	OpParseHTML   = "html.parse"
)

// Session addresses the console for one page instance. It is derived once by
// the host collaborator and is read-only for the engine.
type Session struct {
	// Prefix is the first path segment of console URLs (it carries the
	// session token).
	Prefix string
	// RoomID is the current room, or 0 when absent.
	RoomID int
	// ActingNick is the operator's own nickname.
	ActingNick string
}

// Valid reports whether s can address the console at all.
func (s Session) Valid() bool {
	return s.Prefix != "" && !strings.Contains(s.Prefix, "/")
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Requester mutate.Requester
	Executor  *mutate.Executor
	Locator   *locate.Locator
	Profile   *config.Profile
	// Now is the clock used for ban windows. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Client runs console operations.
type Client struct {
	base    *url.URL
	req     mutate.Requester
	exec    *mutate.Executor
	loc     *locate.Locator
	profile *config.Profile
	now     func() time.Time
	logger  *slog.Logger
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("xchat: invalid base URL %q", opts.BaseURL)
	}
	if opts.Requester == nil || opts.Executor == nil || opts.Locator == nil {
		return nil, fmt.Errorf("xchat: requester, executor and locator are required")
	}
	profile := opts.Profile
	if profile == nil {
		profile = config.DefaultProfile()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:    base,
		req:     opts.Requester,
		exec:    opts.Executor,
		loc:     opts.Locator,
		profile: profile,
		now:     now,
		logger:  logger,
	}, nil
}

// endpoint builds an absolute console URL under the session prefix.
func (c *Client) endpoint(sess Session, path string, query url.Values) string {
	u := *c.base
	u.Path = "/" + sess.Prefix + "/" + strings.TrimPrefix(path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// parsePage turns a decoded body into a node tree.
func parsePage(body string) (*html.Node, error) {
	doc, err := scan.Parse(body)
	if err != nil {
		return nil, &failure.Error{Kind: failure.KindUnhandled, Op: OpParseHTML, Err: err}
	}
	return doc, nil
}

// listingScope narrows doc to the listing container when present.
func (c *Client) listingScope(doc *html.Node) *html.Node {
	if n := scan.ByID(doc, c.profile.Selectors.ListingID); n != nil {
		return n
	}
	return doc
}

// fetchPage GETs rawURL and parses it as a listing page.
func (c *Client) fetchPage(ctx context.Context, index int, rawURL string) (*locate.Page, error) {
	resp, err := c.req.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return toPage(index, resp.URL, resp.Body)
}

func toPage(index int, u *url.URL, body string) (*locate.Page, error) {
	doc, err := parsePage(body)
	if err != nil {
		return nil, err
	}
	return &locate.Page{Index: index, URL: u, Doc: doc}, nil
}

// resolve makes href absolute against the page it was scraped from.
func resolve(p *locate.Page, href string) (string, error) {
	if p.URL == nil {
		return href, nil
	}
	u, err := p.URL.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", href, err)
	}
	return u.String(), nil
}
