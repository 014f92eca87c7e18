package scan

import (
	"net/url"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FindForm returns the <form> with the given name attribute, or nil.
func FindForm(root *html.Node, name string) *html.Node {
	return Find(root, func(n *html.Node) bool {
		return n.DataAtom == atom.Form && Attr(n, "name") == name
	})
}

// InputValue returns the value of the named <input> inside form.
func InputValue(form *html.Node, name string) (string, bool) {
	in := Find(form, func(n *html.Node) bool {
		return n.DataAtom == atom.Input && Attr(n, "name") == name
	})
	if in == nil {
		return "", false
	}
	return Attr(in, "value"), true
}

// HiddenFields returns every hidden input of form as form values, in
// document order.
func HiddenFields(form *html.Node) url.Values {
	out := url.Values{}
	for _, in := range FindAll(form, func(n *html.Node) bool {
		return n.DataAtom == atom.Input && Attr(n, "type") == "hidden" && Attr(n, "name") != ""
	}) {
		out.Add(Attr(in, "name"), Attr(in, "value"))
	}
	return out
}
