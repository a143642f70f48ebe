package backtest

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"revbot/internal/calendar"
	"revbot/internal/core"
	"revbot/internal/data"
	"revbot/internal/market"
	"revbot/internal/signal"
)

// warmupBars is the indicator warm-up floor; no decision is made before it.
const warmupBars = 50

// Instrument pairs a symbol with its leverage code and bar history.
type Instrument struct {
	Symbol   string
	Leverage string
	Bars     []core.Bar
}

// Config describes one replay. Underlying drives signals; Bull and Bear are
// the tradable legs. Series need not be pre-aligned.
type Config struct {
	Underlying Instrument
	Bull       Instrument
	Bear       Instrument
	Params     core.Params
	Market     calendar.Market
	Observer   string
	Sessions   []market.Session
}

type Result struct {
	Trades       []core.TradeRecord
	Reversals    []core.ReversalRecord
	Equity       []core.EquityPoint
	FinalCapital float64
	TotalPnL     float64
	TotalFees    float64
	Summary      Summary
}

// Run replays the strategy bar by bar. The replay is deterministic: bars are
// processed in ascending order and no step reads past the current index.
func Run(cfg Config) (Result, error) {
	if cfg.Observer == "" {
		cfg.Observer = "Asia/Seoul"
	}
	if cfg.Market == "" {
		cfg.Market = calendar.US
	}
	if len(cfg.Sessions) == 0 {
		cfg.Sessions = []market.Session{market.Regular}
	}

	aligned := data.Align(cfg.Underlying.Bars, cfg.Bull.Bars, cfg.Bear.Bars)
	und, bull, bear := aligned[0], aligned[1], aligned[2]
	if len(und) <= warmupBars {
		return Result{}, fmt.Errorf("backtest: %d aligned bars, need more than %d", len(und), warmupBars)
	}
	und = data.EnsureIndicators(und)

	classifier, err := market.NewClassifier(cfg.Observer)
	if err != nil {
		return Result{}, fmt.Errorf("backtest: %w", err)
	}
	cal := calendar.New(cfg.Market, und[0].Ts, und[len(und)-1].Ts)
	strat := core.NewStrategy(cfg.Params, cal)

	heldClose := func(i int) (float64, bool) {
		p := strat.State().Position
		if p == nil {
			return 0, false
		}
		if p.Symbol == cfg.Bull.Symbol {
			return bull[i].Close, true
		}
		return bear[i].Close, true
	}

	var equity []core.EquityPoint
	for i := warmupBars; i < len(und); i++ {
		ts := und[i].Ts
		eligible := market.Contains(cfg.Sessions, classifier.Classify(ts))

		if strat.State().Position == nil && eligible && strat.CanEnter(cal.DayAt(ts)) {
			sig := signal.Generate(*und[i].Ind, core.Flat)
			if side, ok := signal.Entry(sig); ok {
				leg := cfg.Bull
				price := bull[i].Close
				if side == core.Short {
					leg = cfg.Bear
					price = bear[i].Close
				}
				if _, err := strat.Open(side, leg.Symbol, leg.Leverage, price, ts); err != nil {
					return Result{}, fmt.Errorf("backtest open at %s: %w", ts, err)
				}
			}
		}

		if p := strat.State().Position; p != nil {
			price, _ := heldClose(i)
			if reason, hit := strat.CheckExit(price, p.Leverage); hit {
				flipped := false
				if reason == core.StopLoss && cfg.Params.ReverseTrigger && strat.CanReverse(ts) {
					target := cfg.Bear
					targetPrice := bear[i].Close
					if p.Side == core.Short {
						target = cfg.Bull
						targetPrice = bull[i].Close
					}
					if _, err := strat.Reverse(target.Symbol, target.Leverage, price, targetPrice, ts, reason); err != nil {
						return Result{}, fmt.Errorf("backtest reverse at %s: %w", ts, err)
					}
					flipped = true
				}
				if !flipped {
					if _, err := strat.Close(price, ts, reason); err != nil {
						return Result{}, fmt.Errorf("backtest close at %s: %w", ts, err)
					}
				}
			}
		}

		// Forced close runs after SL/TP handling and only if still open.
		if strat.State().Position != nil && strat.CheckForcedClose(ts) {
			price, _ := heldClose(i)
			if _, err := strat.Close(price, ts, core.ForceClose); err != nil {
				return Result{}, fmt.Errorf("backtest forced close at %s: %w", ts, err)
			}
		}

		ref, held := heldClose(i)
		if !held {
			ref = 0
		}
		equity = append(equity, core.EquityPoint{Ts: ts, Equity: strat.MarkToMarket(ref)})
	}

	// Liquidate whatever is still open at the final bar. The last in-loop
	// point shares the final bar's timestamp, so it is replaced rather than
	// duplicated.
	last := len(und) - 1
	if strat.State().Position != nil {
		price, _ := heldClose(last)
		if _, err := strat.Close(price, und[last].Ts, core.FinalClose); err != nil {
			return Result{}, fmt.Errorf("backtest final close: %w", err)
		}
		equity[len(equity)-1] = core.EquityPoint{Ts: und[last].Ts, Equity: strat.MarkToMarket(0)}
	}

	st := strat.State()
	res := Result{
		Trades:       strat.Trades(),
		Reversals:    strat.Reversals(),
		Equity:       equity,
		FinalCapital: st.Capital,
	}
	for _, tr := range res.Trades {
		res.TotalPnL += tr.PnL
		res.TotalFees += tr.Fee
	}
	res.Summary = ComputeMetrics(cfg.Params.Capital, res)

	log.Info().
		Int("trades", len(res.Trades)).
		Int("reversals", len(res.Reversals)).
		Float64("final_capital", res.FinalCapital).
		Msg("backtest finished")
	return res, nil
}

var errNoBars = errors.New("no bars for instrument")

// Validate catches empty inputs before a replay starts.
func (c Config) Validate() error {
	for _, inst := range []Instrument{c.Underlying, c.Bull, c.Bear} {
		if inst.Symbol == "" {
			return errors.New("instrument symbol missing")
		}
		if len(inst.Bars) == 0 {
			return fmt.Errorf("%w: %s", errNoBars, inst.Symbol)
		}
	}
	return nil
}
