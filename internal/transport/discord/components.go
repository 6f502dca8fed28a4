package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/arbr39/kaizen/internal/bot"
	"github.com/arbr39/kaizen/internal/dialog"
)

const (
	idPrefix     = "kz"
	idSep        = "|"
	maxButtons   = 5
	maxChoiceRow = 4
)

// Component ids are "kz|<command>|<session>|<step>[|<choice>]". Session
// and step tie a button to the question it was drawn for, so a second tap
// or a tap on an old message is refused instead of answering a later step.
const sessionIDLen = 8

func customID(parts ...string) string {
	return strings.Join(append([]string{idPrefix}, parts...), idSep)
}

// pinnedID builds the id of a component drawn for r.
func pinnedID(r *dialog.Reply, command string, extra ...string) string {
	session := r.Session
	if len(session) > sessionIDLen {
		session = session[:sessionIDLen]
	}
	return customID(append([]string{command, session, r.Step}, extra...)...)
}

// parseCustomID turns a component id (and select values) back into an
// event without account fields.
func parseCustomID(id string, values []string) (bot.Event, bool) {
	parts := strings.SplitN(id, idSep, 5)
	if len(parts) < 4 || parts[0] != idPrefix {
		return bot.Event{}, false
	}
	ev := bot.Event{Command: parts[1], At: dialog.Expect{Session: parts[2], Step: parts[3]}}
	switch parts[1] {
	case bot.CmdSubmit:
		switch {
		case len(parts) == 5:
			ev.Arg = parts[4]
		case len(values) == 0:
			ev.Arg = "-"
		default:
			ev.Arg = strings.Join(values, ",")
		}
		return ev, true
	case bot.CmdSkip, bot.CmdBack, bot.CmdCancel:
		if len(parts) != 4 {
			return bot.Event{}, false
		}
		return ev, true
	}
	return bot.Event{}, false
}

// buildMessages renders a response. Long text is split; components go on
// the last chunk.
func buildMessages(resp bot.Response) []*discordgo.MessageSend {
	text := resp.Text
	if resp.Reply != nil {
		rendered := bot.Render(resp.Reply)
		if text != "" {
			text += "\n\n" + rendered
		} else {
			text = rendered
		}
	}
	if text == "" {
		text = "OK"
	}

	chunks := splitMessage(text, maxMessageLen)
	msgs := make([]*discordgo.MessageSend, len(chunks))
	for i, c := range chunks {
		msgs[i] = &discordgo.MessageSend{Content: c}
	}
	msgs[len(msgs)-1].Components = components(resp.Reply)
	return msgs
}

func components(r *dialog.Reply) []discordgo.MessageComponent {
	if r == nil || r.Done {
		return nil
	}
	var rows []discordgo.MessageComponent

	switch {
	case r.Multi && len(r.Choices) > 0:
		min := 0
		opts := make([]discordgo.SelectMenuOption, len(r.Choices))
		for i, c := range r.Choices {
			opts[i] = discordgo.SelectMenuOption{Label: truncate(c.Label, 100), Value: c.ID}
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    pinnedID(r, bot.CmdSubmit),
				Placeholder: "Pick all that apply",
				MinValues:   &min,
				MaxValues:   len(opts),
				Options:     opts,
			},
		}})
	case len(r.Choices) > 0:
		var row []discordgo.MessageComponent
		for _, c := range r.Choices {
			if len(row) == maxButtons {
				rows = append(rows, discordgo.ActionsRow{Components: row})
				row = nil
			}
			row = append(row, discordgo.Button{
				Label:    truncate(c.Label, 80),
				Style:    discordgo.PrimaryButton,
				CustomID: pinnedID(r, bot.CmdSubmit, c.ID),
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: row})
		if len(rows) > maxChoiceRow {
			rows = rows[:maxChoiceRow]
		}
	}

	var controls []discordgo.MessageComponent
	if r.Skippable {
		controls = append(controls, discordgo.Button{Label: "Skip", Style: discordgo.SecondaryButton, CustomID: pinnedID(r, bot.CmdSkip)})
	}
	if r.CanGoBack {
		controls = append(controls, discordgo.Button{Label: "Back", Style: discordgo.SecondaryButton, CustomID: pinnedID(r, bot.CmdBack)})
	}
	controls = append(controls, discordgo.Button{Label: "Cancel", Style: discordgo.DangerButton, CustomID: pinnedID(r, bot.CmdCancel)})
	return append(rows, discordgo.ActionsRow{Components: controls})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
