package backtest

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"revbot/internal/core"
)

// Combo is one parameter set in a sweep.
type Combo struct {
	Name   string
	Params core.Params
}

// ComboResult is one finished combination. A failed combination carries its
// error and a zero-trade summary; it never aborts the sweep.
type ComboResult struct {
	Name    string
	Summary Summary
	Err     error
}

// Sweep replays cfg once per combination, at most parallelism at a time.
// Each replay runs on its own strategy instance; combinations share only the
// immutable bar series.
func Sweep(ctx context.Context, cfg Config, combos []Combo, parallelism int) []ComboResult {
	if parallelism <= 0 {
		parallelism = 4
	}
	results := make([]ComboResult, len(combos))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, combo := range combos {
		i, combo := i, combo
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = ComboResult{Name: combo.Name, Err: err}
				return nil
			}
			runCfg := cfg
			runCfg.Params = combo.Params
			res, err := Run(runCfg)
			if err != nil {
				log.Error().Err(err).Str("combo", combo.Name).Msg("sweep combination failed")
				results[i] = ComboResult{Name: combo.Name, Err: err}
				return nil
			}
			results[i] = ComboResult{Name: combo.Name, Summary: res.Summary}
			return nil
		})
	}
	g.Wait()
	return results
}

// Best returns the successful combination with the highest final capital.
func Best(results []ComboResult) (ComboResult, bool) {
	var best ComboResult
	found := false
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if !found || r.Summary.FinalCapital > best.Summary.FinalCapital {
			best = r
			found = true
		}
	}
	return best, found
}
