package xchat

import (
	"context"
	"net/url"
	"strconv"

	"github.com/bdobrica/precommander/common/trace"
	"github.com/bdobrica/precommander/internal/precommander/locate"
	"github.com/bdobrica/precommander/internal/precommander/mutate"
	"github.com/bdobrica/precommander/internal/precommander/scan"
)

// SaveNote creates or updates the operator's note about nick. The console
// keys notes by nickname, so saving twice leaves one note.
func (c *Client) SaveNote(ctx context.Context, sess Session, nick, description string) error {
	fields := url.Values{
		"pop":        {""},
		"page":       {"1"},
		"n_about":    {nick},
		"n_comment":  {description},
		"n_enter":    {"on"},
		"btn_change": {"Uložit"},
	}
	return c.exec.Create(ctx, mutate.Create{
		Op:      OpNoteSave,
		URL:     c.endpoint(sess, c.profile.Endpoints.NoteEdit, nil),
		Fields:  fields,
		Markers: []string{c.profile.Markers.NoteSaved},
	})
}

// RemoveNote finds nick's note across the notes listing, deletes it and
// confirms its absence by rereading the page it was found on.
func (c *Client) RemoveNote(ctx context.Context, sess Session, nick string) error {
	listing := &notesListing{c: c, sess: sess}

	ref, err := c.loc.Locate(ctx, listing, nick, func(p *locate.Page) (locate.Ref, bool) {
		anchor := scan.FindRecordAnchor(c.listingScope(p.Doc), nick)
		if anchor == nil {
			return locate.Ref{}, false
		}
		href := scan.FindActionLink(anchor, c.profile.Selectors.NoteRowClass, c.profile.Selectors.NoteDeleteMarker)
		if href == "" {
			return locate.Ref{}, false
		}
		abs, err := resolve(p, href)
		if err != nil {
			return locate.Ref{}, false
		}
		id, _ := scan.QueryInt(href, "del")
		return locate.Ref{RecordID: id, ActionURL: abs}, true
	})
	if err != nil {
		return err
	}

	trace.Logger(ctx, c.logger).Debug("xchat: note located", "page", ref.Page)

	return c.exec.DeleteConfirmed(ctx, mutate.DeleteRequest{
		Op:        OpNoteDelete,
		ActionURL: ref.ActionURL,
		Probe: func(ctx context.Context) (bool, error) {
			p, err := listing.Fetch(ctx, ref.Page)
			if err != nil {
				return false, err
			}
			return scan.FindRecordAnchor(c.listingScope(p.Doc), nick) != nil, nil
		},
	})
}

// notesListing pages through notes/?page=N.
type notesListing struct {
	c    *Client
	sess Session
}

func (l *notesListing) Name() string { return OpNotes }

func (l *notesListing) Fetch(ctx context.Context, index int) (*locate.Page, error) {
	u := l.c.endpoint(l.sess, l.c.profile.Endpoints.NoteList, url.Values{"page": {strconv.Itoa(index)}})
	return l.c.fetchPage(ctx, index, u)
}

func (l *notesListing) PageHint(p *locate.Page) int {
	return scan.MaxPageHint(l.c.listingScope(p.Doc))
}
