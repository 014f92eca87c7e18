// Package scan extracts typed facts from console HTML fragments using small
// structural queries (by id, class, tag, attribute substring). It never
// interprets a page beyond the element it is asked about, and no function
// mutates the tree it is given.
package scan

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var spaceRun = regexp.MustCompile(`\s+`)

// Parse parses a decoded page into a node tree.
func Parse(body string) (*html.Node, error) {
	return html.Parse(strings.NewReader(body))
}

// Attr returns the value of attribute key on n, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether n carries class in its class list.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Text returns the visible text of n with whitespace runs collapsed and the
// result trimmed.
func Text(n *html.Node) string {
	var sb strings.Builder
	collectText(n, &sb)
	return strings.TrimSpace(spaceRun.ReplaceAllString(sb.String(), " "))
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n == nil {
		return
	}
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style:
			return
		case atom.Br:
			sb.WriteByte(' ')
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// Find returns the first element under root (root included) matching pred,
// in document order.
func Find(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode && pred(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := Find(c, pred); n != nil {
			return n
		}
	}
	return nil
}

// FindAll returns every element under root matching pred, in document order.
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// Closest returns the nearest ancestor of n (n included) matching pred.
func Closest(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && pred(n) {
			return n
		}
	}
	return nil
}

// ByID returns the element with the given id, or nil.
func ByID(root *html.Node, id string) *html.Node {
	return Find(root, func(n *html.Node) bool { return Attr(n, "id") == id })
}

// Links returns hrefs of anchors under scope whose href contains marker.
func Links(scope *html.Node, marker string) []string {
	var out []string
	for _, a := range FindAll(scope, isLinkContaining(marker)) {
		out = append(out, Attr(a, "href"))
	}
	return out
}

func isLinkContaining(marker string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.DataAtom != atom.A {
			return false
		}
		href := Attr(n, "href")
		return href != "" && strings.Contains(href, marker)
	}
}

// MaxParam returns the largest integer value of query parameter param found
// in link targets under scope, or 0 when none carries it.
func MaxParam(scope *html.Node, param string) int {
	best := 0
	for _, href := range Links(scope, param+"=") {
		if n, ok := QueryInt(href, param); ok && n > best {
			best = n
		}
	}
	return best
}

// MaxPageHint returns the highest page=N linked from scope, or 1.
func MaxPageHint(scope *html.Node) int {
	if n := MaxParam(scope, "page"); n > 1 {
		return n
	}
	return 1
}

// QueryInt parses the integer value of param from an absolute or relative
// link target.
func QueryInt(href, param string) (int, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return 0, false
	}
	v := u.Query().Get(param)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FindRecordAnchor returns the first link under scope whose visible text
// equals nickname exactly (after trimming).
func FindRecordAnchor(scope *html.Node, nickname string) *html.Node {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil
	}
	return Find(scope, func(n *html.Node) bool {
		return n.DataAtom == atom.A && Text(n) == nickname
	})
}

// FindActionLink walks up from anchor to the nearest ancestor carrying
// rowClass and returns the href of the first link in that row containing
// marker. It returns "" when either the row or the link is absent.
func FindActionLink(anchor *html.Node, rowClass, marker string) string {
	row := Closest(anchor, func(n *html.Node) bool { return HasClass(n, rowClass) })
	if row == nil {
		return ""
	}
	link := Find(row, isLinkContaining(marker))
	return Attr(link, "href")
}

// LabeledValue finds the element whose own text equals label exactly and
// returns the collapsed text that follows it inside the same parent. A table
// cell label yields the next cell; any other label yields the text up to the
// next <br> or the next sibling with the label's tag.
func LabeledValue(scope *html.Node, label string) (string, bool) {
	label = strings.TrimSpace(label)
	lbl := Find(scope, func(n *html.Node) bool {
		return n.DataAtom != atom.Html && n.DataAtom != atom.Body && Text(n) == label && !hasElementChildWithText(n, label)
	})
	if lbl == nil {
		return "", false
	}

	if lbl.DataAtom == atom.Td || lbl.DataAtom == atom.Th {
		cell := nextElement(lbl)
		if cell == nil {
			return "", false
		}
		value := Text(cell)
		return value, value != ""
	}

	var parts []string
	for s := lbl.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && (s.DataAtom == atom.Br || s.Data == lbl.Data) {
			break
		}
		if t := Text(s); t != "" {
			parts = append(parts, t)
		}
	}
	value := strings.TrimSpace(spaceRun.ReplaceAllString(strings.Join(parts, " "), " "))
	return value, value != ""
}

// hasElementChildWithText reports whether a child element of n already
// carries the whole label, so the innermost element is chosen as the label.
func hasElementChildWithText(n *html.Node, label string) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && Text(c) == label {
			return true
		}
	}
	return false
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}
