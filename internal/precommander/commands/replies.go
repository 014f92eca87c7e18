package commands

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bdobrica/precommander/internal/precommander/failure"
	"github.com/bdobrica/precommander/internal/precommander/xchat"
)

// directMessage is the chat verb every reply is sent with.
const directMessage = "/m"

// unhandledBody is the reply when a handler blew up.
const unhandledBody = "Chyba při zpracování příkazu: Neočekávaná chyba"

// action holds the two grammatical forms a command is named by in replies:
// the infinitive after "Nelze" and the verbal noun after "Chyba při".
type action struct {
	infinitive string
	noun       string
}

var actions = map[string]action{
	CmdNote:      {"uložit poznámku", "ukládání poznámky"},
	CmdUnnote:    {"odebrat poznámku", "odebírání poznámky"},
	CmdShowIP:    {"zjistit IP", "zjišťování IP"},
	CmdBan:       {"zablokovat uživatele", "blokování"},
	CmdUnban:     {"odblokovat uživatele", "odblokování"},
	CmdClearNick: {"smazat text", "mazání textu"},
}

// Formatter renders outcomes as direct messages to the reporting recipient.
type Formatter struct {
	// ReportTo overrides the recipient; empty means the acting operator.
	ReportTo string
}

// Recipient returns who replies are addressed to for sess.
func (f Formatter) Recipient(sess xchat.Session) string {
	if f.ReportTo != "" {
		return f.ReportTo
	}
	return sess.ActingNick
}

// Reply wraps body as a direct message.
func (f Formatter) Reply(sess xchat.Session, body string) string {
	return directMessage + " " + f.Recipient(sess) + " " + body
}

// Format renders the reply for cmd's outcome.
func (f Formatter) Format(sess xchat.Session, cmd string, out Outcome) string {
	return f.Reply(sess, Body(cmd, out))
}

// Unhandled renders the generic failure reply.
func (f Formatter) Unhandled(sess xchat.Session) string {
	return f.Reply(sess, unhandledBody)
}

// Body returns the reply text for cmd's outcome without the addressing.
func Body(cmd string, out Outcome) string {
	if out.OK() {
		return successBody(cmd, out)
	}

	act, ok := actions[cmd]
	if !ok {
		return unhandledBody
	}

	fe := failure.As(out.Err)
	if fe.Kind == failure.KindMissingArgument {
		if fe.Detail == "reason" {
			return fmt.Sprintf("Nelze zablokovat uživatele %s: Chybí důvod", out.Target)
		}
		return fmt.Sprintf("Nelze %s: Chybí nick", act.infinitive)
	}

	target := ""
	if out.Target != "" {
		target = " pro uživatele " + out.Target
	}
	return fmt.Sprintf("Chyba při %s%s: %s", act.noun, target, Reason(out.Err))
}

func successBody(cmd string, out Outcome) string {
	switch cmd {
	case CmdNote:
		return fmt.Sprintf("Uživatel %s uložen do Poznámek", out.Target)
	case CmdUnnote:
		return fmt.Sprintf("Uživatel %s odebrán z Poznámek", out.Target)
	case CmdShowIP:
		if out.IP.Domain == "" {
			return fmt.Sprintf("IP uživatele %s: %s", out.Target, out.IP.IP)
		}
		return fmt.Sprintf("IP uživatele %s: %s (%s)", out.Target, out.IP.IP, out.IP.Domain)
	case CmdBan:
		return fmt.Sprintf("Uživatel %s byl zablokován", out.Target)
	case CmdUnban:
		if out.Found > out.Removed {
			return fmt.Sprintf("Uživatel %s byl odblokován (odebráno záznamů: %d z %d)", out.Target, out.Removed, out.Found)
		}
		return fmt.Sprintf("Uživatel %s byl odblokován (odebráno záznamů: %d)", out.Target, out.Removed)
	case CmdClearNick:
		return fmt.Sprintf("Text uživatele %s byl smazán", out.Target)
	default:
		return "Hotovo"
	}
}

// Reason names the failing step for the operator without internal ids or
// URLs.
func Reason(err error) string {
	fe := failure.As(err)
	switch fe.Kind {
	case failure.KindNetwork:
		return "Network error: " + networkDetail(fe.Err)
	case failure.KindHTTPStatus:
		return fmt.Sprintf("HTTP %d", fe.Status)
	case failure.KindNotFound:
		switch fe.Op {
		case xchat.OpNotes:
			return "Nick nebyl v Poznámkách nalezen"
		case xchat.OpUserLookup:
			return "Uživatel nebyl nalezen"
		case xchat.OpBlacklist:
			return "Žádný aktivní blok nenalezen"
		case xchat.OpBlockIndex:
			return "IP adresa nebyla nalezena"
		default:
			return "Nenalezeno"
		}
	case failure.KindUnconfirmed:
		if strings.HasSuffix(fe.Op, ".delete") {
			return "Smazání se nepotvrdilo"
		}
		return "Nepotvrzeno serverem"
	case failure.KindMissingArgument:
		return "Chybí " + fe.Detail
	default:
		return "Neočekávaná chyba"
	}
}

// networkDetail drops the request URL that net/http puts in its errors, since
// it carries the session prefix.
func networkDetail(err error) string {
	if err == nil {
		return "unknown"
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}
