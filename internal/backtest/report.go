package backtest

import (
	"bytes"
	"fmt"
)

// HTMLReport renders a one-page summary with the trade ledger. svgName and
// zipName are relative links to the exported artifacts.
func HTMLReport(title string, res Result, svgName, zipName string) []byte {
	sum := res.Summary
	var b bytes.Buffer
	fmt.Fprintf(&b, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", title)
	b.WriteString("<style>body{font-family:Inter,system-ui,sans-serif;padding:16px;background:#0b0f17;color:#e6edf3}table{border-collapse:collapse}td,th{border:1px solid #1f2837;padding:6px 8px}</style>")
	b.WriteString("</head><body>")
	fmt.Fprintf(&b, "<h2>%s</h2>", title)
	fmt.Fprintf(&b, "<p>PnL: <b>%.2f</b> | Return: <b>%.2f%%</b> | Trades: <b>%d</b> | Reversals: <b>%d</b> | WinRate: <b>%.1f%%</b> | PF: <b>%.2f</b> | MaxDD: <b>%.2f%%</b> | Fees: <b>%.2f</b></p>",
		sum.PnL, sum.Return, sum.Trades, sum.Reversals, sum.WinRate*100, sum.ProfitFactor, sum.MaxDD, sum.Fees)
	if svgName != "" {
		fmt.Fprintf(&b, "<p><img src='%s' alt='equity curve'/></p>", svgName)
	}

	b.WriteString("<table><tr><th>entry</th><th>exit</th><th>symbol</th><th>side</th><th>qty</th><th>entry px</th><th>exit px</th><th>pnl</th><th>pnl %</th><th>reason</th></tr>")
	for _, t := range res.Trades {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%.0f</td><td>%.2f</td><td>%.2f</td><td>%.2f</td><td>%.2f</td><td>%s</td></tr>",
			t.EntryTime.Format("2006-01-02 15:04"), t.ExitTime.Format("2006-01-02 15:04"),
			t.Symbol, t.Side, t.Quantity, t.EntryPrice, t.ExitPrice, t.PnL, t.PnLPct, t.Reason)
	}
	b.WriteString("</table>")

	if len(res.Reversals) > 0 {
		b.WriteString("<h3>Reversals</h3><table><tr><th>time</th><th>from</th><th>to</th><th>exit px</th><th>entry px</th><th>qty</th><th>fee</th><th>reason</th></tr>")
		for _, r := range res.Reversals {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s %s</td><td>%s %s</td><td>%.2f</td><td>%.2f</td><td>%.0f</td><td>%.2f</td><td>%s</td></tr>",
				r.Ts.Format("2006-01-02 15:04"), r.FromSymbol, r.FromSide, r.ToSymbol, r.ToSide,
				r.ExitPrice, r.EntryPrice, r.Quantity, r.Fee, r.Reason)
		}
		b.WriteString("</table>")
	}

	if zipName != "" {
		fmt.Fprintf(&b, "<p><a href='%s'>Download ZIP</a></p>", zipName)
	}
	b.WriteString("</body></html>")
	return b.Bytes()
}
