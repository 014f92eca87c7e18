// Package commands turns operator-typed slash commands into console
// operations and a single reply line.
//
// Parse recognizes the command marker, the Dispatcher selects a Handler by
// name from its table, and the Formatter renders the outcome. Lines that are
// not commands, or name a command nobody registered, are not intercepted.
package commands

import (
	"errors"
	"strings"
	"unicode"
)

// Marker starts every command line.
const Marker = "/"

// ErrNotACommand is returned by Parse when the line does not start with the
// command marker or carries no command token. Callers should use errors.Is to
// distinguish this expected case.
var ErrNotACommand = errors.New("not a command (missing marker)")

// Command is a parsed command line. It is never modified after Parse.
type Command struct {
	// Name is the case-folded command token without the marker.
	Name string
	// Args is everything after the first whitespace run, trimmed.
	Args string
	// RawText is the trimmed input line.
	RawText string
}

// Parse splits text into a command token and its argument string.
func Parse(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, Marker) {
		return nil, ErrNotACommand
	}

	body := strings.TrimPrefix(text, Marker)
	if body == "" || unicode.IsSpace(rune(body[0])) {
		return nil, ErrNotACommand
	}

	name, args := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		name, args = body[:i], strings.TrimSpace(body[i:])
	}

	return &Command{
		Name:    strings.ToLower(name),
		Args:    args,
		RawText: text,
	}, nil
}

// SplitTarget returns the first whitespace-delimited token of args as the
// target nickname and the trimmed remainder as free text.
func SplitTarget(args string) (nick, rest string) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", ""
	}
	i := strings.IndexFunc(args, unicode.IsSpace)
	if i < 0 {
		return args, ""
	}
	return args[:i], strings.TrimSpace(args[i:])
}
