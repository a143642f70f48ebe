package backtest

import (
	"github.com/samber/lo"

	"revbot/internal/core"
)

type Summary struct {
	PnL          float64 `json:"pnl"`
	Fees         float64 `json:"fees"`
	Return       float64 `json:"return_pct"`
	Trades       int     `json:"trades"`
	Reversals    int     `json:"reversals"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	MaxDD        float64 `json:"max_dd_pct"`
	FinalCapital float64 `json:"final_capital"`
}

// ComputeMetrics folds a finished replay into summary statistics. MaxDD is
// negative or zero, measured on the mark-to-market equity curve.
func ComputeMetrics(initialCapital float64, res Result) Summary {
	trades := res.Trades

	gains := lo.SumBy(trades, func(t core.TradeRecord) float64 {
		if t.PnL > 0 {
			return t.PnL
		}
		return 0
	})
	losses := lo.SumBy(trades, func(t core.TradeRecord) float64 {
		if t.PnL < 0 {
			return -t.PnL
		}
		return 0
	})
	wins := lo.CountBy(trades, func(t core.TradeRecord) bool { return t.PnL > 0 })

	var winRate, pf float64
	if len(trades) > 0 {
		winRate = float64(wins) / float64(len(trades))
	}
	if losses > 0 {
		pf = gains / losses
	}

	var peak, dd float64
	if len(res.Equity) > 0 {
		peak = res.Equity[0].Equity
	}
	for _, p := range res.Equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if d := (p.Equity - peak) / peak * 100; d < dd {
				dd = d
			}
		}
	}

	var ret float64
	if initialCapital > 0 {
		ret = (res.FinalCapital - initialCapital) / initialCapital * 100
	}

	return Summary{
		PnL:          res.TotalPnL,
		Fees:         res.TotalFees,
		Return:       ret,
		Trades:       len(trades),
		Reversals:    len(res.Reversals),
		WinRate:      winRate,
		ProfitFactor: pf,
		MaxDD:        dd,
		FinalCapital: res.FinalCapital,
	}
}
