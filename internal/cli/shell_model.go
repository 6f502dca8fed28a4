package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/arbr39/kaizen/internal/bot"
	"github.com/arbr39/kaizen/internal/cli/formatter"
)

// shellModel is the bubbletea model for the chat shell. Lines go to the
// dispatcher unless they are one of the few shell-local commands.
type shellModel struct {
	ctx     context.Context
	env     *env
	input   textinput.Model
	history *shellHistory

	// form is the active huh form; formDone runs when it completes.
	form     *huh.Form
	formDone func(m *shellModel) string

	// ritual is the definition of the account's open dialog, if any.
	ritual   string
	width    int
	quitting bool
}

func newShellModel(ctx context.Context, e *env, history *shellHistory) shellModel {
	ti := textinput.New()
	ti.Focus()
	ti.Prompt = ""
	ti.CharLimit = 1000

	m := shellModel{ctx: ctx, env: e, input: ti, history: history}
	m.refreshRitual()
	return m
}

func (m shellModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.Println(formatter.FormatShellWelcome(m.env.account)))
}

func (m shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}
	if m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(m.promptPrefix()) - 1
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			m.history.add(line)
			out, cmd := m.handleLine(line)
			var cmds []tea.Cmd
			if out != "" {
				cmds = append(cmds, tea.Println(out))
			}
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		case tea.KeyUp:
			if line, ok := m.history.prev(); ok {
				m.input.SetValue(line)
				m.input.CursorEnd()
			}
			return m, nil
		case tea.KeyDown:
			m.input.SetValue(m.history.next())
			m.input.CursorEnd()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m shellModel) View() string {
	if m.quitting {
		return formatter.Dim("Goodbye.") + "\n"
	}
	if m.form != nil {
		return m.form.View()
	}
	return m.promptPrefix() + m.input.View()
}

func (m *shellModel) promptPrefix() string {
	if m.ritual == "" {
		return formatter.StylePurple.Render("kaizen") + " " + formatter.Dim("❯") + " "
	}
	return formatter.StylePurple.Render("kaizen") + " " +
		formatter.Dim("(") + formatter.StyleGreen.Render(m.ritual) + formatter.Dim(")") +
		" " + formatter.Dim("❯") + " "
}

// handleLine runs one line and returns what to print.
func (m *shellModel) handleLine(line string) (string, tea.Cmd) {
	switch strings.ToLower(line) {
	case "exit", "quit":
		m.quitting = true
		return "", tea.Quit
	case "clear":
		return "", tea.ClearScreen
	case "help":
		return formatter.FormatShellHelp(), nil
	case "history":
		txs, err := m.env.app.Ledger.History(m.ctx, m.env.accountID(), 10)
		if err != nil {
			return formatError(err), nil
		}
		return strings.TrimRight(formatter.FormatHistory(txs, m.env.app.Now()), "\n"), nil
	case "additem":
		return "", m.startForm(m.newItemForm(&itemInput{}))
	}

	ev := bot.ParseText(m.env.accountID(), m.env.account, line)
	resp, err := m.env.app.Dispatcher.Handle(m.ctx, ev)
	m.refreshRitual()
	if err != nil {
		return formatError(err), nil
	}
	return formatter.FormatResponse(resp.Text, resp.Reply), nil
}

func (m *shellModel) refreshRitual() {
	s, err := m.env.app.Engine.Active(m.ctx, m.env.accountID())
	if err != nil || s == nil {
		m.ritual = ""
		return
	}
	m.ritual = s.Definition
}

func (m *shellModel) newItemForm(in *itemInput) (*huh.Form, func(m *shellModel) string) {
	return itemForm(in), func(m *shellModel) string {
		price, err := strconv.ParseInt(strings.TrimSpace(in.Price), 10, 64)
		if err != nil {
			return formatError(err)
		}
		item, err := m.env.addItem(m.ctx, in.Name, price, in.Category)
		if err != nil {
			return formatError(err)
		}
		return formatter.StyleGreen.Render("Added "+item.Name) + formatter.Dim(" for "+strconv.FormatInt(item.Price, 10))
	}
}

func (m *shellModel) startForm(form *huh.Form, done func(m *shellModel) string) tea.Cmd {
	m.form = form
	m.formDone = done
	return m.form.Init()
}

func (m shellModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.form, m.formDone = nil, nil
		return m, tea.Println(formatter.Dim("Cancelled."))
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		done := m.formDone
		m.form, m.formDone = nil, nil
		return m, tea.Batch(cmd, tea.Println(done(&m)))
	case huh.StateAborted:
		m.form, m.formDone = nil, nil
		return m, tea.Println(formatter.Dim("Cancelled."))
	}
	return m, cmd
}

func formatError(err error) string {
	return formatter.StyleRed.Render("Error: ") + err.Error()
}
