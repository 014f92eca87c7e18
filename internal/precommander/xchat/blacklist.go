package xchat

import (
	"context"
	"net/url"
	"strconv"

	"github.com/bdobrica/precommander/common/trace"
	"github.com/bdobrica/precommander/internal/precommander/failure"
	"github.com/bdobrica/precommander/internal/precommander/locate"
	"github.com/bdobrica/precommander/internal/precommander/mutate"
	"github.com/bdobrica/precommander/internal/precommander/scan"
)

// Ban resolves nick and creates a block record spanning the profile's block
// duration from today.
func (c *Client) Ban(ctx context.Context, sess Session, nick, reason string) error {
	uid, err := c.LookupUID(ctx, sess, nick)
	if err != nil {
		return err
	}

	from := c.now()
	to := from.AddDate(c.profile.Blacklist.Years, 0, 0)
	layout := c.profile.Blacklist.DateLayout

	return c.exec.Create(ctx, mutate.Create{
		Op:  OpBanCreate,
		URL: c.endpoint(sess, c.profile.Endpoints.BlacklistEdit, url.Values{"uid": {strconv.Itoa(uid)}}),
		Fields: url.Values{
			"uid":         {strconv.Itoa(uid)},
			"date_from":   {from.Format(layout)},
			"date_to":     {to.Format(layout)},
			"description": {reason},
			"btn_save":    {"Uložit"},
		},
		Markers: []string{c.profile.Markers.BanCreated},
	})
}

// UnbanResult reports a multi-entry unblock.
type UnbanResult struct {
	// Found is how many active block records belonged to the user.
	Found int
	// Removed is how many of them were deleted and confirmed gone.
	Removed int
}

// Unban lifts every active block record of nick. It collects all matching
// records across the blacklist before deleting any, then deletes each one
// independently. The returned error is non-nil only when nothing was removed;
// failures of individual records are logged.
func (c *Client) Unban(ctx context.Context, sess Session, nick string) (UnbanResult, error) {
	uid, err := c.LookupUID(ctx, sess, nick)
	if err != nil {
		return UnbanResult{}, err
	}

	listing := &blacklistListing{c: c, sess: sess, uid: uid}
	refs, err := c.loc.Collect(ctx, listing, func(p *locate.Page) []locate.Ref {
		return c.blockRecords(p, uid)
	})
	if err != nil {
		return UnbanResult{}, err
	}
	if len(refs) == 0 {
		return UnbanResult{}, failure.NewNotFound(OpBlacklist, "no active block")
	}

	reqs := make([]mutate.DeleteRequest, 0, len(refs))
	for _, ref := range refs {
		reqs = append(reqs, mutate.DeleteRequest{
			Op:        OpBlockDelete,
			ActionURL: ref.ActionURL,
			Probe: func(ctx context.Context) (bool, error) {
				return c.blockPresent(ctx, listing, ref)
			},
		})
	}

	removed, delErr := c.exec.DeleteAll(ctx, reqs)
	res := UnbanResult{Found: len(refs), Removed: removed}
	log := trace.Logger(ctx, c.logger)
	if removed == 0 {
		log.Warn("xchat: no block record removed", "found", len(refs), "err", delErr)
		return res, delErr
	}
	if delErr != nil {
		log.Warn("xchat: some block records not removed", "found", len(refs), "removed", removed, "err", delErr)
	}
	return res, nil
}

// blockPresent rereads pages 1 through ref.Page looking for ref.RecordID.
// Removing an earlier row shifts later rows toward lower offsets, so the
// record may have moved off the page it was found on but never past it.
func (c *Client) blockPresent(ctx context.Context, listing *blacklistListing, ref locate.Ref) (bool, error) {
	last := max(ref.Page, 1)
	for index := 1; index <= last; index++ {
		p, err := listing.Fetch(ctx, index)
		if err != nil {
			return false, err
		}
		for _, r := range c.blockRecords(p, ref.OwnerUID) {
			if r.RecordID == ref.RecordID {
				return true, nil
			}
		}
	}
	return false, nil
}

// blockRecords returns the delete links on p that belong to uid.
func (c *Client) blockRecords(p *locate.Page, uid int) []locate.Ref {
	var out []locate.Ref
	for _, href := range scan.Links(c.listingScope(p.Doc), c.profile.Selectors.BlockDeleteMarker) {
		owner, ok := scan.QueryInt(href, "uid")
		if !ok || owner != uid {
			continue
		}
		id, ok := scan.QueryInt(href, "id")
		if !ok {
			continue
		}
		abs, err := resolve(p, href)
		if err != nil {
			continue
		}
		out = append(out, locate.Ref{RecordID: id, OwnerUID: owner, ActionURL: abs})
	}
	return out
}

// blacklistListing pages through black-index.phtml, which is paginated by
// POSTed record offset rather than page number.
type blacklistListing struct {
	c    *Client
	sess Session
	uid  int
}

func (l *blacklistListing) Name() string { return OpBlacklist }

func (l *blacklistListing) Fetch(ctx context.Context, index int) (*locate.Page, error) {
	offset := (index - 1) * l.c.profile.Blacklist.PageSize
	resp, err := l.c.req.PostForm(ctx, l.c.endpoint(l.sess, l.c.profile.Endpoints.BlacklistIndex, nil), url.Values{
		"filter_history": {"0"},
		"uid":            {strconv.Itoa(l.uid)},
		"orderBy":        {"date"},
		"recordOffset":   {strconv.Itoa(offset)},
	})
	if err != nil {
		return nil, err
	}
	return toPage(index, resp.URL, resp.Body)
}

func (l *blacklistListing) PageHint(p *locate.Page) int {
	return scan.MaxParam(l.c.listingScope(p.Doc), "recordOffset")/l.c.profile.Blacklist.PageSize + 1
}
