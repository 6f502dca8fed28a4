package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arbr39/kaizen/internal/domain"
)

// FormatStats renders the balance panel.
func FormatStats(st *domain.LedgerStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Dim("Balance      "), Bold(strconv.FormatInt(st.Balance, 10)))
	fmt.Fprintf(&b, "%s %s\n", Dim("Today        "), Amount(st.EarnedToday))
	fmt.Fprintf(&b, "%s %s\n", Dim(fmt.Sprintf("Last %-2d days ", st.WindowDays)), Amount(st.EarnedWindow))
	fmt.Fprintf(&b, "%s %d / %d\n", Dim("Earned/spent "), st.TotalEarned, st.TotalSpent)
	streak := "none"
	if st.EveningStreak > 0 {
		streak = StylePurple.Render(fmt.Sprintf("%d day(s)", st.EveningStreak))
	}
	fmt.Fprintf(&b, "%s %s", Dim("Streak       "), streak)
	return RenderBox("kaizen", b.String())
}

// FormatHistory renders transactions newest first.
func FormatHistory(txs []*domain.Transaction, now time.Time) string {
	if len(txs) == 0 {
		return Dim("No transactions yet.")
	}
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []string{
			HumanTimestamp(tx.CreatedAt, now),
			Amount(tx.Amount),
			TriggerColor(tx.Trigger).Render(string(tx.Trigger)),
			tx.Description,
		})
	}
	return RenderTable([]string{"WHEN", "AMOUNT", "TRIGGER", "DESCRIPTION"}, rows)
}

// FormatItems lists reward items with how close the balance is to each.
func FormatItems(items []*domain.RedeemableItem, balance int64) string {
	if len(items) == 0 {
		return Dim("No reward items. Add one with 'kaizen items add'.")
	}
	rows := make([][]string, 0, len(items))
	for i, it := range items {
		progress := RenderProgress(float64(balance)/float64(it.Price), 10)
		if it.Status != domain.ItemActive {
			progress = ItemStatusPill(it.Status)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			it.Name,
			strconv.FormatInt(it.Price, 10),
			it.Category,
			strconv.Itoa(it.TimesPurchased),
			progress,
		})
	}
	return RenderTable([]string{"#", "NAME", "PRICE", "CATEGORY", "BOUGHT", "AFFORD"}, rows)
}

// FormatRates lists the effective rate per trigger.
func FormatRates(rates domain.Rates) string {
	rows := make([][]string, 0, len(rates))
	for _, t := range rates.Triggers() {
		rows = append(rows, []string{TriggerColor(t).Render(string(t)), strconv.FormatInt(rates[t], 10)})
	}
	return RenderTable([]string{"TRIGGER", "RATE"}, rows)
}

// FormatInbox lists pending inbox items oldest first.
func FormatInbox(items []*domain.InboxItem, now time.Time) string {
	if len(items) == 0 {
		return Dim("Inbox is empty.")
	}
	rows := make([][]string, 0, len(items))
	for i, it := range items {
		tags := strings.TrimSpace(it.Energy + " " + it.TimeEstimate)
		rows = append(rows, []string{strconv.Itoa(i + 1), it.Text, Dim(tags), HumanTimestamp(it.CreatedAt, now)})
	}
	return RenderTable([]string{"#", "ITEM", "TAGS", "CAPTURED"}, rows)
}
