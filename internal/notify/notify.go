// Package notify delivers fire-and-forget trade event messages. The engine
// never blocks on or reads the outcome of a notification.
package notify

import (
	"fmt"
	"time"

	"revbot/internal/core"
)

type Notifier interface {
	Notify(text string)
}

// Nop discards everything; the default when no channel is configured.
type Nop struct{}

func (Nop) Notify(string) {}

// Entry formats an open event.
func Entry(p core.Position) string {
	return fmt.Sprintf("🟢 <b>%s %s</b>\nprice $%.2f x %.0f\nleverage %s\n%s",
		p.Side, p.Symbol, p.EntryPrice, p.Quantity, p.Leverage,
		p.EntryTime.Format("2006-01-02 15:04"))
}

// Exit formats a close event.
func Exit(t core.TradeRecord) string {
	icon := "🔴"
	if t.PnL > 0 {
		icon = "🟢"
	}
	return fmt.Sprintf("%s <b>CLOSE %s</b> (%s)\n$%.2f → $%.2f\npnl $%.2f (%.2f%%), fee $%.2f",
		icon, t.Symbol, t.Reason, t.EntryPrice, t.ExitPrice, t.PnL, t.PnLPct, t.Fee)
}

// Flip formats a reversal event.
func Flip(r core.ReversalRecord) string {
	return fmt.Sprintf("🔄 <b>REVERSE</b> %s %s → %s %s\nexit $%.2f, entry $%.2f x %.0f",
		r.FromSymbol, r.FromSide, r.ToSymbol, r.ToSide,
		r.ExitPrice, r.EntryPrice, r.Quantity)
}

// Error formats a cycle failure.
func Error(at time.Time, err error) string {
	return fmt.Sprintf("⚠️ <b>tick failed</b> at %s\n%v", at.Format("15:04:05"), err)
}
