package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"revbot/internal/backtest"
	"revbot/internal/broker"
	"revbot/internal/calendar"
	"revbot/internal/cfg"
	"revbot/internal/core"
	"revbot/internal/data"
	"revbot/internal/export"
	"revbot/internal/live"
	"revbot/internal/logx"
	"revbot/internal/notify"
	"revbot/internal/state"
)

func main() {
	config := cfg.Load()
	logx.Setup(config.LogLevel)

	root := &cobra.Command{
		Use:   "revbot",
		Short: "Leveraged long/short reversal trading bot",
	}
	root.AddCommand(newLiveCmd(config))
	root.AddCommand(newBacktestCmd(config))
	root.AddCommand(newSweepCmd(config))
	root.AddCommand(newDownloadCmd(config))

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func newLiveCmd(config cfg.Config) *cobra.Command {
	var closeOnExit bool
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Run the tick-driven bot against live quotes (paper fills)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			now := time.Now()
			cal := calendar.New(config.Market, now.AddDate(0, -1, 0), now.AddDate(1, 0, 0))
			strat := core.NewStrategy(config.Params, cal)
			fetcher := data.NewFetcher(config.BinanceKey, config.BinanceSecret)
			store := state.New(config.StatePath)
			notifier := notify.NewTelegram(config.TgToken, config.TgChatID)

			bot, err := live.New(live.Config{
				Underlying:   config.Underlying,
				Bull:         config.Bull,
				BullLeverage: config.BullLeverage,
				Bear:         config.Bear,
				BearLeverage: config.BearLeverage,
				Interval:     config.Interval,
				Observer:     config.Observer,
				Sessions:     config.EntrySessions,
			}, strat, cal, broker.NewPaper(fetcher), fetcher, store, notifier, live.SystemClock())
			if err != nil {
				return err
			}
			if err := bot.Resume(); err != nil {
				return err
			}

			every, err := time.ParseDuration(config.TickInterval)
			if err != nil {
				return fmt.Errorf("tick interval %q: %w", config.TickInterval, err)
			}
			runErr := bot.Run(ctx, every)
			if closeOnExit {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := bot.CloseAll(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("close on exit failed")
				}
			}
			if runErr == context.Canceled {
				return nil
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&closeOnExit, "close-on-exit", false, "liquidate any open position on shutdown")
	return cmd
}

func newBacktestCmd(config cfg.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the strategy over downloaded history",
		RunE: func(cmd *cobra.Command, args []string) error {
			btCfg, err := loadBacktestConfig(config)
			if err != nil {
				return err
			}
			res, err := backtest.Run(btCfg)
			if err != nil {
				return err
			}
			printSummary(res.Summary)

			name := strings.ToLower(config.Underlying) + "_" + time.Now().Format("20060102_150405")
			report := backtest.HTMLReport("revbot "+config.Underlying, res, name+"_equity.svg", name+".zip")
			zipPath, err := export.WriteBundle(config.OutDir, name, export.Artifacts{
				Trades:     res.Trades,
				Reversals:  res.Reversals,
				Equity:     res.Equity,
				ReportHTML: report,
				Title:      config.Underlying,
			})
			if err != nil {
				return err
			}
			log.Info().Str("bundle", zipPath).Msg("artifacts written")
			return nil
		},
	}
	return cmd
}

func newSweepCmd(config cfg.Config) *cobra.Command {
	var cooldowns, stops string
	var parallelism int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Grid-search cooldown and stop-loss parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			btCfg, err := loadBacktestConfig(config)
			if err != nil {
				return err
			}

			var combos []backtest.Combo
			for _, cd := range splitInts(cooldowns) {
				for _, sl := range splitFloats(stops) {
					p := config.Params
					p.CooldownDays = cd
					p.StopLossRate2x = sl
					combos = append(combos, backtest.Combo{
						Name:   fmt.Sprintf("cd%d_sl%.1f", cd, sl),
						Params: p,
					})
				}
			}
			if len(combos) == 0 {
				return fmt.Errorf("empty sweep grid")
			}

			results := backtest.Sweep(cmd.Context(), btCfg, combos, parallelism)
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("%-16s failed: %v\n", r.Name, r.Err)
					continue
				}
				fmt.Printf("%-16s trades=%-3d win=%.0f%% pf=%.2f dd=%.1f%% final=%.2f\n",
					r.Name, r.Summary.Trades, r.Summary.WinRate*100,
					r.Summary.ProfitFactor, r.Summary.MaxDD, r.Summary.FinalCapital)
			}
			if best, ok := backtest.Best(results); ok {
				fmt.Printf("best: %s (final %.2f)\n", best.Name, best.Summary.FinalCapital)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cooldowns, "cooldowns", "1,2,4", "comma-separated cooldown day values")
	cmd.Flags().StringVar(&stops, "stops", "-6,-8,-10", "comma-separated 2x stop-loss percentages")
	cmd.Flags().IntVar(&parallelism, "parallelism", 4, "concurrent replays")
	return cmd
}

func newDownloadCmd(config cfg.Config) *cobra.Command {
	var from, to, interval string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Fetch kline history for all three instruments",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse("2006-01-02", from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := time.Parse("2006-01-02", to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			fetcher := data.NewFetcher(config.BinanceKey, config.BinanceSecret)
			symbols := [3]string{config.Underlying, config.Bull, config.Bear}
			series, err := fetcher.FetchTriple(cmd.Context(), symbols, interval, start, end)
			if err != nil {
				return err
			}

			if err := export.EnsureDir(config.DataDir); err != nil {
				return err
			}
			for i, sym := range symbols {
				path := barsPath(config.DataDir, sym)
				if err := data.SaveCSV(path, series[i]); err != nil {
					return err
				}
				log.Info().Str("symbol", sym).Int("bars", len(series[i])).Str("path", path).Msg("saved")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "end date YYYY-MM-DD")
	cmd.Flags().StringVar(&interval, "interval", "1h", "kline interval")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func loadBacktestConfig(config cfg.Config) (backtest.Config, error) {
	load := func(sym string) ([]core.Bar, error) {
		bars, err := data.LoadCSV(barsPath(config.DataDir, sym))
		if err != nil {
			return nil, fmt.Errorf("history for %s (run `revbot download` first): %w", sym, err)
		}
		return bars, nil
	}
	und, err := load(config.Underlying)
	if err != nil {
		return backtest.Config{}, err
	}
	bull, err := load(config.Bull)
	if err != nil {
		return backtest.Config{}, err
	}
	bear, err := load(config.Bear)
	if err != nil {
		return backtest.Config{}, err
	}

	btCfg := backtest.Config{
		Underlying: backtest.Instrument{Symbol: config.Underlying, Leverage: "1", Bars: und},
		Bull:       backtest.Instrument{Symbol: config.Bull, Leverage: config.BullLeverage, Bars: bull},
		Bear:       backtest.Instrument{Symbol: config.Bear, Leverage: config.BearLeverage, Bars: bear},
		Params:     config.Params,
		Market:     config.Market,
		Observer:   config.Observer,
		Sessions:   config.EntrySessions,
	}
	return btCfg, btCfg.Validate()
}

func barsPath(dir, symbol string) string {
	return filepath.Join(dir, strings.ToLower(symbol)+".csv")
}

func printSummary(s backtest.Summary) {
	fmt.Printf("trades      %d\n", s.Trades)
	fmt.Printf("reversals   %d\n", s.Reversals)
	fmt.Printf("win rate    %.1f%%\n", s.WinRate*100)
	fmt.Printf("profit f.   %.2f\n", s.ProfitFactor)
	fmt.Printf("pnl         %.2f (fees %.2f)\n", s.PnL, s.Fees)
	fmt.Printf("return      %.2f%%\n", s.Return)
	fmt.Printf("max dd      %.2f%%\n", s.MaxDD)
	fmt.Printf("final cap   %.2f\n", s.FinalCapital)
}

func splitInts(raw string) []int {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		if v, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func splitFloats(raw string) []float64 {
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}
