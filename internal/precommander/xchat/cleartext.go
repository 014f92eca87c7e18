package xchat

import (
	"context"
	"net/url"

	"github.com/bdobrica/precommander/internal/precommander/mutate"
)

// ClearText purges nick's stored text history. Either of the configured
// markers confirms it.
func (c *Client) ClearText(ctx context.Context, sess Session, nick string) error {
	return c.exec.Create(ctx, mutate.Create{
		Op:  OpClearText,
		URL: c.endpoint(sess, c.profile.Endpoints.ClearText, nil),
		Fields: url.Values{
			"nick":         {nick},
			"Button_Block": {"Smazat"},
		},
		Markers: c.profile.Markers.TextClear,
	})
}
