// Package xchattest provides an in-memory fake of the legacy console for
// tests. It serves ISO-8859-2 pages shaped like the production ones and keeps
// just enough state (notes, users, block records, purged nicks) to observe
// what the engine did.
package xchattest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/encoding/charmap"
)

// Prefix is the session prefix the fake console is mounted under.
const Prefix = "~42~abcdef"

// Block is one blacklist record.
type Block struct {
	ID          int
	UID         int
	From, To    string
	Description string
}

// Note is one notes entry.
type Note struct {
	ID   int
	Text string
}

// Console is a fake legacy console.
type Console struct {
	mu sync.Mutex

	// Notes maps nickname to note.
	Notes map[string]*Note
	// NotesPerPage paginates the notes listing. Defaults to 10.
	NotesPerPage int
	// GrowingPagination makes every notes page link to one page beyond itself.
	GrowingPagination bool
	// StickyNoteDeletes makes note deletes answer 200 without deleting.
	StickyNoteDeletes bool

	// Users maps nickname to uid; IPs maps uid to "ip|domain".
	Users map[string]int
	IPs   map[int]string

	Blocks []Block
	// BlockPageSize paginates the blacklist. Defaults to 20.
	BlockPageSize int
	// FailBlockDeletes lists block ids whose delete answers 500.
	FailBlockDeletes map[int]bool
	// StickyBlockDeletes lists block ids whose delete answers 200 without deleting.
	StickyBlockDeletes map[int]bool

	// Cleared records purged nicknames.
	Cleared []string

	// ActingNick is shown on the text page; Sent records decoded chat
	// submissions made through it.
	ActingNick string
	Sent       []string

	// SuppressMarkers makes writes succeed silently without the success phrase.
	SuppressMarkers bool

	// Hits counts requests by "METHOD path" (path without the prefix).
	Hits map[string]int

	nextID int
	server *httptest.Server
}

// New starts a fake console. Call Close when done.
func New() *Console {
	c := &Console{
		Notes:              map[string]*Note{},
		Users:              map[string]int{},
		IPs:                map[int]string{},
		FailBlockDeletes:   map[int]bool{},
		StickyBlockDeletes: map[int]bool{},
		Hits:               map[string]int{},
		ActingNick:         "mod",
		nextID:             100,
	}
	c.server = httptest.NewServer(http.HandlerFunc(c.serve))
	return c
}

// URL is the console origin.
func (c *Console) URL() string { return c.server.URL }

// Close shuts the server down.
func (c *Console) Close() { c.server.Close() }

// AddNote seeds a note.
func (c *Console) AddNote(nick, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.Notes[nick] = &Note{ID: c.nextID, Text: text}
}

// AddBlock seeds a block record and returns its id.
func (c *Console) AddBlock(uid int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.Blocks = append(c.Blocks, Block{ID: c.nextID, UID: uid})
	return c.nextID
}

// TextPagePath is where the chat text page is served, relative to URL.
const TextPagePath = "/" + Prefix + "/modchat?op=textpageng"

// SentMessages returns the chat lines submitted through the text page.
func (c *Console) SentMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Sent...)
}

// HitCount returns how often "METHOD path" was requested.
func (c *Console) HitCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Hits[key]
}

// TotalHits returns the number of requests served.
func (c *Console) TotalHits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.Hits {
		n += v
	}
	return n
}

// BlocksFor returns the block records of uid.
func (c *Console) BlocksFor(uid int) []Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Block
	for _, b := range c.Blocks {
		if b.UID == uid {
			out = append(out, b)
		}
	}
	return out
}

func (c *Console) serve(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/"+Prefix+"/")
	if path == r.URL.Path {
		http.NotFound(w, r)
		return
	}
	c.Hits[r.Method+" "+path]++
	r.ParseForm()

	switch r.Method + " " + path {
	case "POST notes/edit.php":
		c.saveNote(w, r)
	case "GET notes/":
		c.notesPage(w, r)
	case "POST admin/user/index.phtml":
		c.userLookup(w, r)
	case "GET admin/user/block-index.phtml":
		c.blockIndex(w, r)
	case "POST admin/blacklist/edit.phtml":
		c.createBlock(w, r)
	case "POST admin/blacklist/black-index.phtml":
		c.blacklistPage(w, r)
	case "GET admin/blacklist/delete.phtml":
		c.deleteBlock(w, r)
	case "POST admin/blacklist/cleartext.php":
		c.clearText(w, r)
	case "GET modchat":
		c.textPage(w)
	case "POST modchat":
		msg, _ := charmap.ISO8859_2.NewDecoder().String(r.PostForm.Get("msg"))
		c.Sent = append(c.Sent, msg)
		c.textPage(w)
	default:
		http.NotFound(w, r)
	}
}

func (c *Console) write(w http.ResponseWriter, body string) {
	enc, err := charmap.ISO8859_2.NewEncoder().String("<html><body>" + body + "</body></html>")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=iso-8859-2")
	w.Write([]byte(enc))
}

func (c *Console) marker(phrase string) string {
	if c.SuppressMarkers {
		return "<p>Hotovo</p>"
	}
	return "<p>" + phrase + "</p>"
}

func (c *Console) saveNote(w http.ResponseWriter, r *http.Request) {
	nick := r.PostForm.Get("n_about")
	if n, ok := c.Notes[nick]; ok {
		n.Text = r.PostForm.Get("n_comment")
	} else {
		c.nextID++
		c.Notes[nick] = &Note{ID: c.nextID, Text: r.PostForm.Get("n_comment")}
	}
	c.write(w, c.marker("Poznámka vložena."))
}

func (c *Console) notesPage(w http.ResponseWriter, r *http.Request) {
	if del := r.URL.Query().Get("del"); del != "" && !c.StickyNoteDeletes {
		id, _ := strconv.Atoi(del)
		for nick, n := range c.Notes {
			if n.ID == id {
				delete(c.Notes, nick)
			}
		}
	}

	per := c.NotesPerPage
	if per <= 0 {
		per = 10
	}
	nicks := make([]string, 0, len(c.Notes))
	for nick := range c.Notes {
		nicks = append(nicks, nick)
	}
	sort.Strings(nicks)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pages := (len(nicks) + per - 1) / per
	if pages < 1 {
		pages = 1
	}

	var sb strings.Builder
	sb.WriteString(`<div id="mn">`)
	for i := (page - 1) * per; i < page*per && i < len(nicks); i++ {
		n := c.Notes[nicks[i]]
		fmt.Fprintf(&sb, `<div class="notesl"><a href="/%s/profile/?nick=%s">%s</a> <span>%s</span> <a href="?page=%d&del=%d">smazat</a></div>`,
			Prefix, nicks[i], nicks[i], n.Text, page, n.ID)
	}
	sb.WriteString(`<p>`)
	last := pages
	if c.GrowingPagination {
		last = page + 1
	}
	for p := 1; p <= last; p++ {
		fmt.Fprintf(&sb, ` <a href="?page=%d">%d</a>`, p, p)
	}
	sb.WriteString(`</p></div>`)
	c.write(w, sb.String())
}

func (c *Console) userLookup(w http.ResponseWriter, r *http.Request) {
	nick := r.PostForm.Get("nick")
	uid, ok := c.Users[nick]
	if !ok {
		c.write(w, `<p>Uživatel nenalezen</p>`)
		return
	}
	c.write(w, fmt.Sprintf(`<table><tr><td>Nick:</td><td>%s</td></tr><tr><td>UID:</td><td>%d</td></tr></table>`, nick, uid))
}

func (c *Console) blockIndex(w http.ResponseWriter, r *http.Request) {
	uid, _ := strconv.Atoi(r.URL.Query().Get("uid"))
	info, ok := c.IPs[uid]
	if !ok {
		c.write(w, `<p>Žádná data</p>`)
		return
	}
	ip, domain, _ := strings.Cut(info, "|")
	c.write(w, fmt.Sprintf(`<div><b>IP:</b> %s<br><b>Doména:</b> %s<br></div>`, ip, domain))
}

func (c *Console) createBlock(w http.ResponseWriter, r *http.Request) {
	uid, _ := strconv.Atoi(r.URL.Query().Get("uid"))
	c.nextID++
	c.Blocks = append(c.Blocks, Block{
		ID:          c.nextID,
		UID:         uid,
		From:        r.PostForm.Get("date_from"),
		To:          r.PostForm.Get("date_to"),
		Description: r.PostForm.Get("description"),
	})
	c.write(w, c.marker("Záznam byl uložen."))
}

func (c *Console) blacklistPage(w http.ResponseWriter, r *http.Request) {
	uid, _ := strconv.Atoi(r.PostForm.Get("uid"))
	offset, _ := strconv.Atoi(r.PostForm.Get("recordOffset"))
	per := c.BlockPageSize
	if per <= 0 {
		per = 20
	}

	var rows []Block
	for _, b := range c.Blocks {
		if b.UID == uid {
			rows = append(rows, b)
		}
	}

	var sb strings.Builder
	sb.WriteString(`<div id="mn"><table>`)
	for i := offset; i < offset+per && i < len(rows); i++ {
		b := rows[i]
		fmt.Fprintf(&sb, `<tr><td>%d</td><td><a href="delete.phtml?id=%d&uid=%d&filter_history=0">smazat</a></td></tr>`, b.ID, b.ID, b.UID)
	}
	sb.WriteString(`</table><p>`)
	for off := 0; off < len(rows); off += per {
		fmt.Fprintf(&sb, ` <a href="black-index.phtml?recordOffset=%d">%d</a>`, off, off/per+1)
	}
	sb.WriteString(`</p></div>`)
	c.write(w, sb.String())
}

func (c *Console) deleteBlock(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.URL.Query().Get("id"))
	if c.FailBlockDeletes[id] {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if c.StickyBlockDeletes[id] {
		c.write(w, `<p>OK</p>`)
		return
	}
	kept := c.Blocks[:0]
	for _, b := range c.Blocks {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	c.Blocks = kept
	c.write(w, `<p>OK</p>`)
}

func (c *Console) clearText(w http.ResponseWriter, r *http.Request) {
	c.Cleared = append(c.Cleared, r.PostForm.Get("nick"))
	c.write(w, c.marker("Text byl smazán."))
}

func (c *Console) textPage(w http.ResponseWriter) {
	c.write(w, fmt.Sprintf(`<form name="f" method="post" action="/%s/modchat">`+
		`<input type="hidden" name="op" value="textpageng"><input type="hidden" name="rid" value="12">`+
		`<strong>%s:</strong> <input type="text" name="msg"></form>`, Prefix, c.ActingNick))
}
