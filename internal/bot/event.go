// Package bot turns transport-neutral chat events into dialog engine calls
// and ledger commands. Transports (Discord, HTTP, terminal) only parse and
// render.
package bot

import (
	"strings"

	"github.com/arbr39/kaizen/internal/dialog"
)

// Commands understood by the Dispatcher. An empty command submits the
// text to the running ritual.
const (
	CmdSubmit  = "submit"
	CmdBegin   = "begin"
	CmdSkip    = "skip"
	CmdBack    = "back"
	CmdCancel  = "cancel"
	CmdCurrent = "current"

	CmdBalance   = "balance"
	CmdItems     = "items"
	CmdAddItem   = "additem"
	CmdBuy       = "buy"
	CmdInbox     = "inbox"
	CmdDone      = "done"
	CmdRates     = "rates"
	CmdStats     = "stats"
	CmdWeek      = "week"
	CmdHabits    = "habits"
	CmdHistory   = "history"
	CmdPenalties = "penalties"
	CmdHelp      = "help"
)

// Event is one inbound user action. At is set by transports whose buttons
// belong to a specific question; ritual commands then only apply while
// that question is current.
type Event struct {
	AccountID   string
	DisplayName string
	Command     string
	Arg         string
	At          dialog.Expect
}

// Response is what the transport should show. Reply is set when a ritual
// step or completion should be drawn, Text otherwise (or in addition, e.g.
// a validation message above the re-rendered step).
type Response struct {
	Text  string
	Reply *dialog.Reply
}

// bare words that act as commands without a prefix, because they are
// what users type mid-ritual.
var bareCommands = map[string]bool{
	CmdSkip:   true,
	CmdBack:   true,
	CmdCancel: true,
}

// ParseText splits a chat message into an Event. "/cmd arg" and "!cmd arg"
// are commands; skip, back and cancel also work bare; anything else is an
// answer for the running ritual.
func ParseText(accountID, displayName, text string) Event {
	ev := Event{AccountID: accountID, DisplayName: displayName}
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "/") || strings.HasPrefix(text, "!") {
		cmd, arg, _ := strings.Cut(text[1:], " ")
		ev.Command = strings.ToLower(cmd)
		ev.Arg = strings.TrimSpace(arg)
		return ev
	}
	if lower := strings.ToLower(text); bareCommands[lower] {
		ev.Command = lower
		return ev
	}
	ev.Command = CmdSubmit
	ev.Arg = text
	return ev
}
