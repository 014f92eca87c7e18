package xchat

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/bdobrica/precommander/common/trace"
	"github.com/bdobrica/precommander/internal/precommander/failure"
	"github.com/bdobrica/precommander/internal/precommander/scan"
)

// IPInfo is what the block-index page reports about a user's connection.
type IPInfo struct {
	IP     string
	Domain string
}

// LookupUID resolves nick to the console's numeric user id by submitting the
// admin user search and reading the labeled id row.
func (c *Client) LookupUID(ctx context.Context, sess Session, nick string) (int, error) {
	room := ""
	if sess.RoomID > 0 {
		room = strconv.Itoa(sess.RoomID)
	}
	u := c.endpoint(sess, c.profile.Endpoints.UserLookup, url.Values{"sent": {"1"}})
	resp, err := c.req.PostForm(ctx, u, url.Values{
		"nick":    {nick},
		"id_room": {room},
		"sent":    {"1"},
	})
	if err != nil {
		return 0, err
	}
	doc, err := parsePage(resp.Body)
	if err != nil {
		return 0, err
	}

	raw, ok := scan.LabeledValue(doc, c.profile.Labels.UserID)
	if !ok {
		return 0, failure.NewNotFound(OpUserLookup, "user id row absent")
	}
	uid, err := strconv.Atoi(strings.Fields(raw)[0])
	if err != nil || uid <= 0 {
		return 0, failure.NewNotFound(OpUserLookup, "user id not numeric")
	}
	trace.Logger(ctx, c.logger).Debug("xchat: user resolved", "uid", uid)
	return uid, nil
}

// UserIP reads the IP and domain of uid from the block-index page.
func (c *Client) UserIP(ctx context.Context, sess Session, uid int) (IPInfo, error) {
	u := c.endpoint(sess, c.profile.Endpoints.BlockIndex, url.Values{"uid": {strconv.Itoa(uid)}})
	resp, err := c.req.Get(ctx, u)
	if err != nil {
		return IPInfo{}, err
	}
	doc, err := parsePage(resp.Body)
	if err != nil {
		return IPInfo{}, err
	}

	ip, ok := scan.LabeledValue(doc, c.profile.Labels.IP)
	if !ok {
		return IPInfo{}, failure.NewNotFound(OpBlockIndex, "ip field absent")
	}
	domain, _ := scan.LabeledValue(doc, c.profile.Labels.Domain)
	return IPInfo{IP: ip, Domain: domain}, nil
}

// ShowIP resolves nick and reports its IP. When the lookup fails the
// block-index page is never requested.
func (c *Client) ShowIP(ctx context.Context, sess Session, nick string) (IPInfo, error) {
	uid, err := c.LookupUID(ctx, sess, nick)
	if err != nil {
		return IPInfo{}, err
	}
	return c.UserIP(ctx, sess, uid)
}
