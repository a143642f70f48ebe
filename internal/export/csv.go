package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"revbot/internal/core"
)

// WriteTradesCSV dumps the closed-trade ledger, one row per round trip.
func WriteTradesCSV(path string, trades []core.TradeRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"entry_ts", "exit_ts", "symbol", "side", "qty", "entry_price", "exit_price", "pnl", "pnl_pct", "fee", "reason"})
	for _, t := range trades {
		w.Write([]string{
			t.EntryTime.Format(time.RFC3339), t.ExitTime.Format(time.RFC3339),
			t.Symbol, t.Side.String(),
			ftoa(t.Quantity), ftoa(t.EntryPrice), ftoa(t.ExitPrice),
			ftoa(t.PnL), ftoa(t.PnLPct), ftoa(t.Fee), string(t.Reason),
		})
	}
	w.Flush()
	return w.Error()
}

// WriteReversalsCSV dumps the flip ledger.
func WriteReversalsCSV(path string, revs []core.ReversalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"ts", "from_symbol", "to_symbol", "from_side", "to_side", "exit_price", "entry_price", "qty", "fee", "reason"})
	for _, r := range revs {
		w.Write([]string{
			r.Ts.Format(time.RFC3339),
			r.FromSymbol, r.ToSymbol, r.FromSide.String(), r.ToSide.String(),
			ftoa(r.ExitPrice), ftoa(r.EntryPrice), ftoa(r.Quantity),
			ftoa(r.Fee), string(r.Reason),
		})
	}
	w.Flush()
	return w.Error()
}

func WriteEquityCSV(path string, points []core.EquityPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"ts", "equity"})
	for _, p := range points {
		w.Write([]string{p.Ts.Format(time.RFC3339), ftoa(p.Equity)})
	}
	w.Flush()
	return w.Error()
}

func ftoa(x float64) string { return fmt.Sprintf("%.8f", x) }
