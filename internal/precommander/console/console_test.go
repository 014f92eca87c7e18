package console_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/encoding/charmap"

	"github.com/bdobrica/precommander/common/ready"
	"github.com/bdobrica/precommander/internal/precommander/console"
	"github.com/bdobrica/precommander/internal/precommander/scan"
	"github.com/bdobrica/precommander/internal/precommander/transport"
	"github.com/bdobrica/precommander/internal/precommander/xchat"
)

const textPage = `<html><body>
<form name="f" method="post" action="/~$7~tok123/modchat">
  <input type="hidden" name="op" value="textpageng">
  <input type="hidden" name="rid" value="77">
  <input type="hidden" name="key" value="%s">
  <strong>Moderátor:</strong>
  <input type="text" name="msg" value="">
</form></body></html>`

func latin2(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.ISO8859_2.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return []byte(b)
}

func TestDerive(t *testing.T) {
	pageURL, _ := url.Parse("https://www.xchat.cz/~$7~tok123/modchat?op=textpageng")

	tests := []struct {
		name   string
		body   string
		want   *console.Page
		wantOK bool
	}{
		{
			name: "text page",
			body: `<form name="f" action="/~$7~tok123/modchat"><input type="hidden" name="op" value="textpageng">` +
				`<input type="hidden" name="rid" value="77"><strong>mod:</strong><input name="msg"></form>`,
			want: &console.Page{
				Session: xchat.Session{Prefix: "~$7~tok123", RoomID: 77, ActingNick: "mod"},
				Action:  "https://www.xchat.cz/~$7~tok123/modchat",
				Hidden:  url.Values{"op": {"textpageng"}, "rid": {"77"}},
			},
			wantOK: true,
		},
		{
			name: "room from id_room and relative action",
			body: `<form name="f" action="modchat"><input type="hidden" name="op" value="textpageng">` +
				`<input type="hidden" name="id_room" value="5"><strong> Žofka </strong></form>`,
			want: &console.Page{
				Session: xchat.Session{Prefix: "~$7~tok123", RoomID: 5, ActingNick: "Žofka"},
				Action:  "https://www.xchat.cz/~$7~tok123/modchat",
				Hidden:  url.Values{"op": {"textpageng"}, "id_room": {"5"}},
			},
			wantOK: true,
		},
		{
			name: "no room",
			body: `<form name="f" action="/~$7~tok123/modchat"><input type="hidden" name="op" value="textpageng"><strong>mod</strong></form>`,
			want: &console.Page{
				Session: xchat.Session{Prefix: "~$7~tok123", ActingNick: "mod"},
				Action:  "https://www.xchat.cz/~$7~tok123/modchat",
				Hidden:  url.Values{"op": {"textpageng"}},
			},
			wantOK: true,
		},
		{name: "other form", body: `<form name="login"><input name="op" value="textpageng"><strong>mod</strong></form>`},
		{name: "other page op", body: `<form name="f"><input type="hidden" name="op" value="roompage"><strong>mod</strong></form>`},
		{name: "no nick", body: `<form name="f"><input type="hidden" name="op" value="textpageng"></form>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := scan.Parse(tt.body)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got, ok := console.Derive(doc, pageURL)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Derive mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// chatServer serves the text page after `unavailable` failed loads and
// records submitted messages.
type chatServer struct {
	mu          sync.Mutex
	unavailable int
	loads       int
	key         string
	posts       []url.Values
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Method == http.MethodPost {
		r.ParseForm()
		s.posts = append(s.posts, r.PostForm)
		s.key = "rotated"
	} else {
		s.loads++
		if s.loads <= s.unavailable {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=iso-8859-2")
	w.Write(latin2Page(s.key))
}

func latin2Page(key string) []byte {
	b, _ := charmap.ISO8859_2.NewEncoder().String(fmt.Sprintf(textPage, key))
	return []byte(b)
}

func attach(t *testing.T, srv *httptest.Server, attempts int) (*console.Console, error) {
	t.Helper()
	tr, err := transport.New(transport.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	return console.Attach(context.Background(), console.Options{
		PageURL:   srv.URL + "/~$7~tok123/modchat?op=textpageng",
		Requester: tr,
		Ready:     ready.Config{Interval: time.Millisecond, MaxAttempts: attempts},
	})
}

func TestAttach_WaitsForPage(t *testing.T) {
	cs := &chatServer{unavailable: 2, key: "k1"}
	srv := httptest.NewServer(cs)
	defer srv.Close()

	c, err := attach(t, srv, 5)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	want := xchat.Session{Prefix: "~$7~tok123", RoomID: 77, ActingNick: "Moderátor"}
	if diff := cmp.Diff(want, c.Session()); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
	if cs.loads != 3 {
		t.Errorf("loads = %d, want 3", cs.loads)
	}
}

func TestAttach_GivesUp(t *testing.T) {
	cs := &chatServer{unavailable: 100}
	srv := httptest.NewServer(cs)
	defer srv.Close()

	_, err := attach(t, srv, 3)
	if !errors.Is(err, ready.ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	if cs.loads != 3 {
		t.Errorf("loads = %d, want 3", cs.loads)
	}
}

func TestSubmit_ReplaysHiddenFieldsInLegacyCharset(t *testing.T) {
	cs := &chatServer{key: "k1"}
	srv := httptest.NewServer(cs)
	defer srv.Close()

	c, err := attach(t, srv, 1)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := c.Submit(context.Background(), "/m mod Uživatel bob uložen do Poznámek"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := c.Submit(context.Background(), "ahoj"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(cs.posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(cs.posts))
	}
	first := cs.posts[0]
	if got, want := first.Get("msg"), string(latin2(t, "/m mod Uživatel bob uložen do Poznámek")); got != want {
		t.Errorf("msg bytes = %q, want %q", got, want)
	}
	if first.Get("op") != "textpageng" || first.Get("rid") != "77" || first.Get("key") != "k1" {
		t.Errorf("hidden fields = %v", first)
	}
	if got := cs.posts[1].Get("key"); got != "rotated" {
		t.Errorf("second submit key = %q, want the refreshed value", got)
	}
}

func TestAttach_InvalidOptions(t *testing.T) {
	if _, err := console.Attach(context.Background(), console.Options{PageURL: "::"}); err == nil {
		t.Error("expected error for invalid page URL")
	}
	if _, err := console.Attach(context.Background(), console.Options{PageURL: "https://www.xchat.cz/x"}); err == nil {
		t.Error("expected error for missing requester")
	}
}
