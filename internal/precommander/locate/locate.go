// Package locate walks paginated console listings looking for the record
// that belongs to a nickname.
//
// Every walk fetches page 1 first, takes the page-count hint from what it has
// seen so far, and visits later pages strictly in ascending order, so no page
// index is fetched twice. An absolute ceiling independent of the hint bounds
// the walk even when the listing's pagination is malformed or keeps growing.
package locate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/net/html"

	"github.com/bdobrica/precommander/common/trace"
	"github.com/bdobrica/precommander/internal/precommander/failure"
)

// DefaultMaxPages is used when Locator.MaxPages is not positive.
const DefaultMaxPages = 50

// Page is one fetched listing page.
type Page struct {
	// Index is the 1-based page number.
	Index int
	// URL is where the page was fetched from; relative links resolve against it.
	URL *url.URL
	Doc *html.Node
}

// Listing fetches the pages of one paginated listing.
type Listing interface {
	// Name identifies the listing in logs and failures (e.g. "notes").
	Name() string
	// Fetch returns page index (1-based).
	Fetch(ctx context.Context, index int) (*Page, error)
	// PageHint returns the highest page index p links to (at least 1).
	PageHint(p *Page) int
}

// Ref points at one record on a listing. It lives only for the duration of a
// locate-then-mutate sequence.
type Ref struct {
	RecordID int
	OwnerUID int
	// Page is the listing page the record was found on.
	Page int
	// ActionURL is the absolute URL of the record's action link.
	ActionURL string
}

// Match reports the record on p that the caller is looking for.
type Match func(p *Page) (Ref, bool)

// MatchAll reports every record on p the caller is looking for.
type MatchAll func(p *Page) []Ref

// Locator runs bounded listing walks.
type Locator struct {
	MaxPages int
	Logger   *slog.Logger
}

// New returns a Locator with the given ceiling.
func New(maxPages int, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{MaxPages: maxPages, Logger: logger}
}

func (l *Locator) ceiling() int {
	if l.MaxPages > 0 {
		return l.MaxPages
	}
	return DefaultMaxPages
}

// walkResult reports how a walk ended.
type walkResult struct {
	fetched    int
	hint       int
	ceilingHit bool
}

// walk visits pages 1..hint in order until visit returns true, the hint is
// exhausted, or the ceiling is reached. A fetch error aborts the walk.
func (l *Locator) walk(ctx context.Context, listing Listing, visit func(*Page) bool) (walkResult, error) {
	limit := l.ceiling()
	res := walkResult{hint: 1}

	for index := 1; index <= res.hint; index++ {
		if res.fetched >= limit {
			res.ceilingHit = true
			break
		}
		page, err := listing.Fetch(ctx, index)
		if err != nil {
			return res, fmt.Errorf("%s page %d: %w", listing.Name(), index, err)
		}
		res.fetched++
		if visit(page) {
			return res, nil
		}
		if h := listing.PageHint(page); h > res.hint {
			res.hint = h
		}
	}
	return res, nil
}

// Locate returns the first record matched by match, searching pages in order.
// A record absent from every page yields failure.KindNotFound; transport
// failures are returned as they came from the listing.
func (l *Locator) Locate(ctx context.Context, listing Listing, subject string, match Match) (Ref, error) {
	log := trace.Logger(ctx, l.Logger)

	var found Ref
	var ok bool
	res, err := l.walk(ctx, listing, func(p *Page) bool {
		found, ok = match(p)
		if ok {
			found.Page = p.Index
		}
		return ok
	})
	if err != nil {
		return Ref{}, err
	}
	if ok {
		log.Debug("locate: record found", "listing", listing.Name(), "page", found.Page)
		return found, nil
	}

	if res.ceilingHit {
		log.Warn("locate: page ceiling reached", "listing", listing.Name(),
			"fetched", res.fetched, "hint", res.hint)
		return Ref{}, failure.NewNotFound(listing.Name(),
			fmt.Sprintf("%s not found within %d pages", subject, res.fetched))
	}
	return Ref{}, failure.NewNotFound(listing.Name(), subject+" not found")
}

// Collect returns every record matched by matchAll across the whole listing,
// deduplicated by RecordID and in the order first seen. An empty result is not
// an error; callers decide whether absence means failure.
func (l *Locator) Collect(ctx context.Context, listing Listing, matchAll MatchAll) ([]Ref, error) {
	log := trace.Logger(ctx, l.Logger)

	seen := make(map[int]struct{})
	var out []Ref
	res, err := l.walk(ctx, listing, func(p *Page) bool {
		for _, ref := range matchAll(p) {
			if _, dup := seen[ref.RecordID]; dup {
				continue
			}
			seen[ref.RecordID] = struct{}{}
			ref.Page = p.Index
			out = append(out, ref)
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if res.ceilingHit {
		log.Warn("locate: page ceiling reached while collecting", "listing", listing.Name(),
			"fetched", res.fetched, "hint", res.hint, "collected", len(out))
	}
	return out, nil
}
