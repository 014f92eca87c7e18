package commands_test

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/bdobrica/precommander/internal/precommander/commands"
	"github.com/bdobrica/precommander/internal/precommander/failure"
	"github.com/bdobrica/precommander/internal/precommander/xchat"
)

func TestBody(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		out  commands.Outcome
		want string
	}{
		{"note ok", commands.CmdNote, commands.Outcome{Target: "bob"}, "Uživatel bob uložen do Poznámek"},
		{"unnote ok", commands.CmdUnnote, commands.Outcome{Target: "bob"}, "Uživatel bob odebrán z Poznámek"},
		{
			"showip ok",
			commands.CmdShowIP,
			commands.Outcome{Target: "alice", IP: xchat.IPInfo{IP: "10.0.0.1", Domain: "host.cz"}},
			"IP uživatele alice: 10.0.0.1 (host.cz)",
		},
		{
			"showip without domain",
			commands.CmdShowIP,
			commands.Outcome{Target: "alice", IP: xchat.IPInfo{IP: "10.0.0.1"}},
			"IP uživatele alice: 10.0.0.1",
		},
		{"ban ok", commands.CmdBan, commands.Outcome{Target: "carol"}, "Uživatel carol byl zablokován"},
		{"unban ok", commands.CmdUnban, commands.Outcome{Target: "carol", Removed: 2, Found: 2}, "Uživatel carol byl odblokován (odebráno záznamů: 2)"},
		{"unban partial", commands.CmdUnban, commands.Outcome{Target: "carol", Removed: 1, Found: 2}, "Uživatel carol byl odblokován (odebráno záznamů: 1 z 2)"},
		{"clearnick ok", commands.CmdClearNick, commands.Outcome{Target: "dave"}, "Text uživatele dave byl smazán"},
		{
			"missing nick",
			commands.CmdNote,
			commands.Outcome{Err: failure.NewMissingArgument(commands.CmdNote, "nick")},
			"Nelze uložit poznámku: Chybí nick",
		},
		{
			"missing reason",
			commands.CmdBan,
			commands.Outcome{Target: "carol", Err: failure.NewMissingArgument(commands.CmdBan, "reason")},
			"Nelze zablokovat uživatele carol: Chybí důvod",
		},
		{
			"note not in listing",
			commands.CmdUnnote,
			commands.Outcome{Target: "bob", Err: failure.NewNotFound(xchat.OpNotes, "bob not found")},
			"Chyba při odebírání poznámky pro uživatele bob: Nick nebyl v Poznámkách nalezen",
		},
		{
			"user lookup failed",
			commands.CmdShowIP,
			commands.Outcome{Target: "alice", Err: failure.NewNotFound(xchat.OpUserLookup, "user id row absent")},
			"Chyba při zjišťování IP pro uživatele alice: Uživatel nebyl nalezen",
		},
		{
			"no active block",
			commands.CmdUnban,
			commands.Outcome{Target: "carol", Err: failure.NewNotFound(xchat.OpBlacklist, "no active block")},
			"Chyba při odblokování pro uživatele carol: Žádný aktivní blok nenalezen",
		},
		{
			"create unconfirmed",
			commands.CmdClearNick,
			commands.Outcome{Target: "dave", Err: failure.NewUnconfirmed(xchat.OpClearText, "not confirmed by server")},
			"Chyba při mazání textu pro uživatele dave: Nepotvrzeno serverem",
		},
		{
			"delete unconfirmed",
			commands.CmdUnnote,
			commands.Outcome{Target: "bob", Err: failure.NewUnconfirmed(xchat.OpNoteDelete, "still present after delete")},
			"Chyba při odebírání poznámky pro uživatele bob: Smazání se nepotvrdilo",
		},
		{
			"http status",
			commands.CmdBan,
			commands.Outcome{Target: "carol", Err: fmt.Errorf("wrapped: %w", failure.NewHTTPStatus("POST x", 503))},
			"Chyba při blokování pro uživatele carol: HTTP 503",
		},
		{
			"unclassified",
			commands.CmdNote,
			commands.Outcome{Target: "bob", Err: errors.New("boom")},
			"Chyba při ukládání poznámky pro uživatele bob: Neočekávaná chyba",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commands.Body(tt.cmd, tt.out); got != tt.want {
				t.Errorf("Body() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReason_NetworkHidesURL(t *testing.T) {
	cause := &url.Error{Op: "Get", URL: "https://www.xchat.cz/~$1~secret/notes/", Err: errors.New("connection refused")}
	got := commands.Reason(failure.NewNetwork("GET [REDACTED]", cause))

	if got != "Network error: connection refused" {
		t.Errorf("Reason() = %q", got)
	}
	if strings.Contains(got, "secret") {
		t.Errorf("reason leaks the session prefix: %q", got)
	}
}

func TestFormatter_Recipient(t *testing.T) {
	sess := xchat.Session{Prefix: "~$1~x", ActingNick: "mod"}

	if got := (commands.Formatter{}).Reply(sess, "ahoj"); got != "/m mod ahoj" {
		t.Errorf("default recipient reply = %q", got)
	}
	if got := (commands.Formatter{ReportTo: "boss"}).Reply(sess, "ahoj"); got != "/m boss ahoj" {
		t.Errorf("override recipient reply = %q", got)
	}
	if got := (commands.Formatter{}).Unhandled(sess); got != "/m mod Chyba při zpracování příkazu: Neočekávaná chyba" {
		t.Errorf("unhandled reply = %q", got)
	}
}
