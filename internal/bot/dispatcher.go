package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/service"
)

// Dialogs is the engine surface the dispatcher drives.
type Dialogs interface {
	Begin(ctx context.Context, accountID, definition string, opts ...dialog.BeginOption) (*dialog.Reply, error)
	SubmitAt(ctx context.Context, accountID string, at dialog.Expect, value string) (*dialog.Reply, error)
	SkipAt(ctx context.Context, accountID string, at dialog.Expect) (*dialog.Reply, error)
	BackAt(ctx context.Context, accountID string, at dialog.Expect) (*dialog.Reply, error)
	CancelAt(ctx context.Context, accountID string, at dialog.Expect) (string, error)
	Current(ctx context.Context, accountID string) (*dialog.Reply, error)
}

// Deps wires a Dispatcher.
type Deps struct {
	Dialogs Dialogs
	Ledger  service.LedgerService
	Items   service.ItemService
	Inbox   service.InboxService
	Reports service.ReportService
	// Location decides the day boundaries for stats. Nil means UTC.
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// Dispatcher routes Events. It is safe for concurrent use; per-account
// ordering is enforced by the engine.
type Dispatcher struct {
	deps Deps
}

func NewDispatcher(deps Deps) *Dispatcher {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{deps: deps}
}

// ritualAliases maps short names to ritual ids.
var ritualAliases = map[string]domain.Ritual{
	"morning": domain.RitualMorning,
	"evening": domain.RitualEvening,
	"triage":  domain.RitualInbox,
	"inbox":   domain.RitualInbox,
	"weekly":  domain.RitualWeekly,
	"monthly": domain.RitualMonthly,
}

// ResolveRitual accepts a ritual id or one of its short names.
func ResolveRitual(name string) (domain.Ritual, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if r := domain.Ritual(name); r.Valid() {
		return r, true
	}
	r, ok := ritualAliases[name]
	return r, ok
}

const (
	historyLimit = 10
	statsWindow  = 7
)

// Handle processes one event. User mistakes (bad input, unknown items,
// insufficient funds) come back as a Response; only infrastructure
// failures are returned as errors.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (Response, error) {
	if ev.AccountID == "" {
		return Response{}, fmt.Errorf("event without account id")
	}
	if _, err := d.deps.Ledger.EnsureAccount(ctx, ev.AccountID, ev.DisplayName); err != nil {
		return Response{}, err
	}

	resp, err := d.route(ctx, ev)
	if err == nil {
		return resp, nil
	}
	if resp, ok := d.explain(ctx, ev.AccountID, err); ok {
		return resp, nil
	}
	d.deps.Logger.ErrorContext(ctx, "bot_event_failed",
		"account", ev.AccountID, "command", ev.Command, "error", err.Error())
	return Response{}, err
}

func (d *Dispatcher) route(ctx context.Context, ev Event) (Response, error) {
	acct := ev.AccountID
	switch ev.Command {
	case CmdSubmit, "":
		return reply(d.deps.Dialogs.SubmitAt(ctx, acct, ev.At, ev.Arg))
	case CmdSkip:
		return reply(d.deps.Dialogs.SkipAt(ctx, acct, ev.At))
	case CmdBack:
		return reply(d.deps.Dialogs.BackAt(ctx, acct, ev.At))
	case CmdCurrent:
		return reply(d.deps.Dialogs.Current(ctx, acct))
	case CmdCancel:
		name, err := d.deps.Dialogs.CancelAt(ctx, acct, ev.At)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: cancelText(name)}, nil
	case CmdBegin:
		name, arg, _ := strings.Cut(ev.Arg, " ")
		return d.begin(ctx, acct, name, strings.TrimSpace(arg))
	case CmdBalance:
		return d.balance(ctx, acct)
	case CmdItems:
		return d.items(ctx, acct)
	case CmdAddItem:
		return d.addItem(ctx, acct, ev.Arg)
	case CmdBuy:
		return d.buy(ctx, acct, ev.Arg)
	case CmdInbox:
		if ev.Arg == "" {
			return d.listInbox(ctx, acct)
		}
		return d.capture(ctx, acct, ev.Arg)
	case CmdDone:
		return d.inboxDone(ctx, acct, ev.Arg)
	case CmdRates:
		return d.rates(ctx, acct)
	case CmdStats:
		return d.stats(ctx, acct)
	case CmdWeek:
		w, err := d.deps.Reports.Week(ctx, acct, d.deps.Now().In(d.deps.Location))
		if err != nil {
			return Response{}, err
		}
		return Response{Text: WeekReportText(w)}, nil
	case CmdHabits:
		h, err := d.deps.Reports.Habits(ctx, acct, d.deps.Now().In(d.deps.Location))
		if err != nil {
			return Response{}, err
		}
		return Response{Text: HabitsText(h)}, nil
	case CmdHistory:
		return d.history(ctx, acct)
	case CmdPenalties:
		return d.penalties(ctx, acct, ev.Arg)
	case CmdHelp:
		return Response{Text: helpText}, nil
	}
	if _, ok := ResolveRitual(ev.Command); ok {
		return d.begin(ctx, acct, ev.Command, ev.Arg)
	}
	return Response{Text: fmt.Sprintf("Unknown command %q.\n\n%s", ev.Command, helpText)}, nil
}

// cancelText says what a cancel threw away. Monthly keeps the days that were
// already rated because each day is saved when it is finished.
func cancelText(name string) string {
	if domain.Ritual(name) == domain.RitualMonthly {
		return fmt.Sprintf("Cancelled %s. Days you already rated are kept; pick up again with `/begin monthly`.", name)
	}
	return fmt.Sprintf("Cancelled %s. Nothing from it was saved.", name)
}

func reply(r *dialog.Reply, err error) (Response, error) {
	if err != nil {
		return Response{}, err
	}
	return Response{Reply: r}, nil
}

func (d *Dispatcher) begin(ctx context.Context, acct, name, arg string) (Response, error) {
	r, ok := ResolveRitual(name)
	if !ok {
		return Response{Text: fmt.Sprintf("Unknown ritual %q. Try one of: morning, evening, triage, weekly, monthly.", name)}, nil
	}
	var opts []dialog.BeginOption
	if arg != "" {
		switch r {
		case domain.RitualInbox:
			id, err := d.inboxRef(ctx, acct, arg)
			if err != nil {
				return Response{}, err
			}
			opts = append(opts, dialog.WithParams(map[string]string{"item_id": id}))
		case domain.RitualMonthly:
			opts = append(opts, dialog.WithParams(map[string]string{"day": arg}))
		}
	}
	return reply(d.deps.Dialogs.Begin(ctx, acct, string(r), opts...))
}

// explain turns user-facing errors into a Response.
func (d *Dispatcher) explain(ctx context.Context, acct string, err error) (Response, bool) {
	var de *dialog.Error
	if errors.As(err, &de) {
		switch de.Code {
		case dialog.CodeInvalidInput, dialog.CodeNotSkippable, dialog.CodeAtStart:
			cur, cerr := d.deps.Dialogs.Current(ctx, acct)
			if cerr != nil {
				return Response{Text: de.Message}, true
			}
			return Response{Text: de.Message, Reply: cur}, true
		case dialog.CodeStale:
			cur, cerr := d.deps.Dialogs.Current(ctx, acct)
			if cerr != nil {
				return Response{Text: "That button belongs to a ritual that is already over."}, true
			}
			return Response{Text: "That button is from an earlier question. Here is where you are:", Reply: cur}, true
		case dialog.CodeNoActiveSession:
			return Response{Text: "No ritual in progress. Start one with `/begin morning` or see `/help`."}, true
		case dialog.CodeUnknownDefinition, dialog.CodePrecondition, dialog.CodeSessionActive:
			return Response{Text: de.Message}, true
		}
		return Response{}, false
	}

	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return Response{Text: "Not enough points for that yet."}, true
	case errors.Is(err, domain.ErrItemNotFound):
		return Response{Text: "No such reward. See `/items`."}, true
	case errors.Is(err, domain.ErrItemInactive):
		return Response{Text: "That reward is archived."}, true
	case errors.Is(err, domain.ErrInboxItemNotFound):
		return Response{Text: "No such inbox item. See `/inbox`."}, true
	case errors.Is(err, domain.ErrInvalidItem), errors.Is(err, domain.ErrInvalidRate):
		return Response{Text: err.Error()}, true
	case errors.Is(err, errUsage):
		return Response{Text: err.Error()}, true
	}
	return Response{}, false
}

var errUsage = errors.New("usage")

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

func (d *Dispatcher) balance(ctx context.Context, acct string) (Response, error) {
	b, err := d.deps.Ledger.Balance(ctx, acct)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: fmt.Sprintf("Balance: %d", b)}, nil
}

func (d *Dispatcher) items(ctx context.Context, acct string) (Response, error) {
	items, err := d.deps.Items.List(ctx, acct, false)
	if err != nil {
		return Response{}, err
	}
	if len(items) == 0 {
		return Response{Text: "No rewards yet. Add one with `/additem <price> <name>`."}, nil
	}
	var b strings.Builder
	b.WriteString("Rewards:")
	for i, it := range items {
		fmt.Fprintf(&b, "\n  %d. %s: %d", i+1, it.Name, it.Price)
		if it.Category != "" {
			fmt.Fprintf(&b, " (%s)", it.Category)
		}
	}
	b.WriteString("\nBuy with `/buy <number or name>`.")
	return Response{Text: b.String()}, nil
}

func (d *Dispatcher) addItem(ctx context.Context, acct, arg string) (Response, error) {
	priceText, name, _ := strings.Cut(strings.TrimSpace(arg), " ")
	price, err := strconv.ParseInt(priceText, 10, 64)
	if err != nil || strings.TrimSpace(name) == "" {
		return Response{}, usage("/additem <price> <name>")
	}
	item := &domain.RedeemableItem{AccountID: acct, Name: name, Price: price}
	if err := d.deps.Items.Create(ctx, item); err != nil {
		return Response{}, err
	}
	return Response{Text: fmt.Sprintf("Added %s for %d.", item.Name, item.Price)}, nil
}

// itemRef resolves a 1-based list position, an id or a name.
func (d *Dispatcher) itemRef(ctx context.Context, acct, ref string) (*domain.RedeemableItem, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		items, err := d.deps.Items.List(ctx, acct, false)
		if err != nil {
			return nil, err
		}
		if n >= 1 && n <= len(items) {
			return items[n-1], nil
		}
	}
	return d.deps.Items.Resolve(ctx, acct, ref)
}

func (d *Dispatcher) buy(ctx context.Context, acct, ref string) (Response, error) {
	if ref == "" {
		return Response{}, usage("/buy <number or name>")
	}
	item, err := d.itemRef(ctx, acct, ref)
	if err != nil {
		return Response{}, err
	}
	if _, err := d.deps.Ledger.Spend(ctx, acct, item.ID); err != nil {
		return Response{}, err
	}
	b, err := d.deps.Ledger.Balance(ctx, acct)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: fmt.Sprintf("Enjoy your %s! -%d, balance %d.", item.Name, item.Price, b)}, nil
}

func (d *Dispatcher) capture(ctx context.Context, acct, text string) (Response, error) {
	item, err := d.deps.Inbox.Capture(ctx, acct, text)
	if err != nil {
		if domain.IsStorageError(err) {
			return Response{}, err
		}
		return Response{}, usage("%s", err.Error())
	}
	return Response{Text: fmt.Sprintf("Captured: %s", item.Text)}, nil
}

func (d *Dispatcher) listInbox(ctx context.Context, acct string) (Response, error) {
	items, err := d.deps.Inbox.List(ctx, acct, domain.InboxPending)
	if err != nil {
		return Response{}, err
	}
	if len(items) == 0 {
		return Response{Text: "Inbox zero."}, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Inbox (%d):", len(items))
	for i, it := range items {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, it.Text)
		if it.Energy != "" || it.TimeEstimate != "" {
			fmt.Fprintf(&b, " [%s %s]", it.Energy, it.TimeEstimate)
		}
	}
	b.WriteString("\nTriage with `/begin triage [number]`, finish with `/done <number>`.")
	return Response{Text: b.String()}, nil
}

// inboxRef resolves a 1-based position in the pending list, or an id.
func (d *Dispatcher) inboxRef(ctx context.Context, acct, ref string) (string, error) {
	n, err := strconv.Atoi(ref)
	if err != nil {
		return ref, nil
	}
	items, err := d.deps.Inbox.List(ctx, acct, domain.InboxPending)
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(items) {
		return "", domain.ErrInboxItemNotFound
	}
	return items[n-1].ID, nil
}

func (d *Dispatcher) inboxDone(ctx context.Context, acct, ref string) (Response, error) {
	if ref == "" {
		return Response{}, usage("/done <number>")
	}
	id, err := d.inboxRef(ctx, acct, ref)
	if err != nil {
		return Response{}, err
	}
	res, err := d.deps.Inbox.Complete(ctx, acct, id)
	if err != nil {
		return Response{}, err
	}
	if !res.Credited() {
		return Response{Text: "Already done."}, nil
	}
	return Response{Text: fmt.Sprintf("Done! %+d", res.Amount)}, nil
}

func (d *Dispatcher) rates(ctx context.Context, acct string) (Response, error) {
	rates, err := d.deps.Ledger.Rates(ctx, acct)
	if err != nil {
		return Response{}, err
	}
	var b strings.Builder
	b.WriteString("Rates:")
	for _, t := range rates.Triggers() {
		fmt.Fprintf(&b, "\n  %s: %d", t, rates[t])
	}
	return Response{Text: b.String()}, nil
}

func (d *Dispatcher) stats(ctx context.Context, acct string) (Response, error) {
	st, err := d.deps.Ledger.Stats(ctx, acct, d.deps.Now().In(d.deps.Location), statsWindow)
	if err != nil {
		return Response{}, err
	}
	text := fmt.Sprintf("Balance: %d\nEarned today: %d\nEarned in the last %d days: %d\nTotal earned: %d, spent: %d\nEvening streak: %d",
		st.Balance, st.EarnedToday, st.WindowDays, st.EarnedWindow, st.TotalEarned, st.TotalSpent, st.EveningStreak)
	return Response{Text: text}, nil
}

func (d *Dispatcher) history(ctx context.Context, acct string) (Response, error) {
	txs, err := d.deps.Ledger.History(ctx, acct, historyLimit)
	if err != nil {
		return Response{}, err
	}
	if len(txs) == 0 {
		return Response{Text: "No transactions yet."}, nil
	}
	var b strings.Builder
	b.WriteString("Recent:")
	for _, tx := range txs {
		fmt.Fprintf(&b, "\n  %s %+d %s", tx.CreatedAt.In(d.deps.Location).Format("01-02 15:04"), tx.Amount, describe(tx))
	}
	return Response{Text: b.String()}, nil
}

func describe(tx *domain.Transaction) string {
	if tx.Description != "" {
		return tx.Description
	}
	return string(tx.Trigger)
}

func (d *Dispatcher) penalties(ctx context.Context, acct, arg string) (Response, error) {
	var on bool
	switch strings.ToLower(arg) {
	case "on":
		on = true
	case "off":
	default:
		return Response{}, usage("/penalties on|off")
	}
	if err := d.deps.Ledger.SetPenaltiesEnabled(ctx, acct, on); err != nil {
		return Response{}, err
	}
	if on {
		return Response{Text: "Penalties on: a missed evening reflection costs points."}, nil
	}
	return Response{Text: "Penalties off."}, nil
}

const helpText = `Rituals:
  /begin morning | evening | triage [n] | weekly | monthly [day]
  while in a ritual: answer, or skip, back, cancel
Progress:
  /week  last seven days
  /habits  exercise, eating and sleep
Rewards:
  /balance  /stats  /history  /rates
  /items  /additem <price> <name>  /buy <n|name>
Inbox:
  /inbox <text>  capture a thought
  /inbox  list pending items
  /done <n>  finish an item
Settings:
  /penalties on|off`
