// Package live drives the strategy with a fixed-interval tick against real
// collaborators. Each tick is one synchronous evaluate/act/monitor cycle;
// the strategy core is shared with the backtest replay.
package live

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"revbot/internal/broker"
	"revbot/internal/calendar"
	"revbot/internal/core"
	"revbot/internal/data"
	"revbot/internal/market"
	"revbot/internal/notify"
	"revbot/internal/signal"
	"revbot/internal/state"
)

// historyBars is how much history a tick pulls for the indicator snapshot.
const historyBars = 100

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// Feed serves recent bar history for the underlying instrument.
type Feed interface {
	RecentBars(ctx context.Context, symbol, interval string, limit int) ([]core.Bar, error)
}

// Config names the instruments and how ticks are evaluated.
type Config struct {
	Underlying   string
	Bull         string
	BullLeverage string
	Bear         string
	BearLeverage string
	Interval     string
	Observer     string
	Sessions     []market.Session
}

type Bot struct {
	cfg        Config
	strat      *core.ReversalStrategy
	cal        *calendar.Calendar
	classifier *market.Classifier
	brk        broker.Broker
	feed       Feed
	store      *state.Store
	notifier   notify.Notifier
	clock      Clock
	halted     bool
}

func New(cfg Config, strat *core.ReversalStrategy, cal *calendar.Calendar, brk broker.Broker, feed Feed, store *state.Store, notifier notify.Notifier, clock Clock) (*Bot, error) {
	if cfg.Observer == "" {
		cfg.Observer = "Asia/Seoul"
	}
	if len(cfg.Sessions) == 0 {
		cfg.Sessions = []market.Session{market.Regular}
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if clock == nil {
		clock = systemClock{}
	}
	classifier, err := market.NewClassifier(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("live: %w", err)
	}
	return &Bot{
		cfg:        cfg,
		strat:      strat,
		cal:        cal,
		classifier: classifier,
		brk:        brk,
		feed:       feed,
		store:      store,
		notifier:   notifier,
		clock:      clock,
	}, nil
}

// Halted reports whether the drawdown guard has stopped trading.
func (b *Bot) Halted() bool { return b.halted }

// Resume loads the persisted snapshot, if any, into the strategy. Forced
// close and cooldown dates come from the snapshot rather than being
// re-derived, so a restart cannot move a deadline.
func (b *Bot) Resume() error {
	snap, err := b.store.Load()
	if err != nil {
		return fmt.Errorf("live resume: %w", err)
	}
	if snap == nil {
		return nil
	}
	st, err := snap.ToState()
	if err != nil {
		return fmt.Errorf("live resume: %w", err)
	}
	b.strat.Restore(st)
	if st.Position != nil {
		log.Info().Str("symbol", st.Position.Symbol).Str("side", st.Position.Side.String()).Msg("resumed open position")
	}
	return nil
}

// OnTick runs one full cycle. A collaborator failure aborts the cycle with
// an error and leaves the strategy untouched; the next tick retries.
func (b *Bot) OnTick(ctx context.Context) error {
	if b.halted {
		return nil
	}
	now := b.clock.Now()

	if err := b.maybeEnter(ctx, now); err != nil {
		b.notifier.Notify(notify.Error(now, err))
		return err
	}
	if err := b.monitor(ctx, now); err != nil {
		b.notifier.Notify(notify.Error(now, err))
		return err
	}
	return nil
}

func (b *Bot) maybeEnter(ctx context.Context, now time.Time) error {
	if b.strat.State().Position != nil {
		return nil
	}
	if !market.Contains(b.cfg.Sessions, b.classifier.Classify(now)) {
		return nil
	}
	if !b.strat.CanEnter(b.cal.DayAt(now)) {
		return nil
	}

	bars, err := b.feed.RecentBars(ctx, b.cfg.Underlying, b.cfg.Interval, historyBars)
	if err != nil {
		return fmt.Errorf("tick history: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("tick history: no bars for %s", b.cfg.Underlying)
	}
	bars = data.EnsureIndicators(bars)
	last := bars[len(bars)-1]
	if last.Ind == nil {
		return nil
	}

	sig := signal.Generate(*last.Ind, core.Flat)
	side, ok := signal.Entry(sig)
	if !ok {
		return nil
	}

	symbol, leverage := b.cfg.Bull, b.cfg.BullLeverage
	if side == core.Short {
		symbol, leverage = b.cfg.Bear, b.cfg.BearLeverage
	}
	price, err := b.brk.CurrentPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("tick quote %s: %w", symbol, err)
	}
	qty := b.strat.CalculatePositionSize(price, false)
	if qty <= 0 {
		return nil
	}

	// Order first; the ledger only moves on a confirmed fill.
	conf, err := b.brk.PlaceOrder(ctx, symbol, broker.Buy, qty, price, broker.Market)
	if err != nil {
		return fmt.Errorf("tick entry order %s: %w", symbol, err)
	}
	opened, err := b.strat.Open(side, symbol, leverage, conf.Price, now)
	if err != nil {
		return err
	}
	if opened {
		if err := b.saveSnapshot(); err != nil {
			return err
		}
		if p := b.strat.State().Position; p != nil {
			log.Info().Str("reason", sig.Reason).Msg("live entry")
			b.notifier.Notify(notify.Entry(*p))
		}
	}
	return nil
}

func (b *Bot) monitor(ctx context.Context, now time.Time) error {
	p := b.strat.State().Position
	if p == nil {
		return b.checkDrawdown(ctx, now)
	}
	price, err := b.brk.CurrentPrice(ctx, p.Symbol)
	if err != nil {
		return fmt.Errorf("tick quote %s: %w", p.Symbol, err)
	}

	if reason, hit := b.strat.CheckExit(price, p.Leverage); hit {
		flipped := false
		if reason == core.StopLoss && b.strat.Params().ReverseTrigger && b.strat.CanReverse(now) {
			var ferr error
			flipped, ferr = b.flip(ctx, p, price, now, reason)
			if ferr != nil {
				return ferr
			}
		}
		if !flipped {
			if err := b.closePosition(ctx, p, price, now, reason); err != nil {
				return err
			}
		}
	}

	if b.strat.State().Position != nil && b.strat.CheckForcedClose(now) {
		p := b.strat.State().Position
		price, err := b.brk.CurrentPrice(ctx, p.Symbol)
		if err != nil {
			return fmt.Errorf("tick quote %s: %w", p.Symbol, err)
		}
		if err := b.closePosition(ctx, p, price, now, core.ForceClose); err != nil {
			return err
		}
	}

	return b.checkDrawdown(ctx, now)
}

// checkDrawdown values whatever is held now at a fresh quote; after a flip
// the held symbol is no longer the one quoted at the top of the tick. A
// breach halts the bot and liquidates the position.
func (b *Bot) checkDrawdown(ctx context.Context, now time.Time) error {
	ref := 0.0
	cur := b.strat.State().Position
	if cur != nil {
		q, err := b.brk.CurrentPrice(ctx, cur.Symbol)
		if err != nil {
			return fmt.Errorf("tick quote %s: %w", cur.Symbol, err)
		}
		ref = q
	}
	if !b.strat.DrawdownExceeded(ref) {
		return nil
	}

	b.halted = true
	log.Error().Float64("equity", b.strat.MarkToMarket(ref)).Msg("max drawdown exceeded: trading halted")
	b.notifier.Notify(fmt.Sprintf("🛑 <b>max drawdown exceeded</b>, trading halted at %s", now.Format("2006-01-02 15:04")))
	if cur != nil {
		if err := b.closePosition(ctx, cur, ref, now, core.BotStop); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) flip(ctx context.Context, p *core.Position, exitPrice float64, now time.Time, reason core.ExitReason) (bool, error) {
	toSymbol, toLeverage := b.cfg.Bear, b.cfg.BearLeverage
	if p.Side == core.Short {
		toSymbol, toLeverage = b.cfg.Bull, b.cfg.BullLeverage
	}
	entryPrice, err := b.brk.CurrentPrice(ctx, toSymbol)
	if err != nil {
		return false, fmt.Errorf("tick quote %s: %w", toSymbol, err)
	}

	if _, err := b.brk.PlaceOrder(ctx, p.Symbol, broker.Sell, p.Quantity, exitPrice, broker.Market); err != nil {
		return false, fmt.Errorf("tick flip close order %s: %w", p.Symbol, err)
	}
	// Size from the post-close preview so both orders hit the exchange
	// before the ledger moves.
	qty := b.strat.PreviewReverse(exitPrice, entryPrice)
	if qty > 0 {
		if _, err := b.brk.PlaceOrder(ctx, toSymbol, broker.Buy, qty, entryPrice, broker.Market); err != nil {
			return false, fmt.Errorf("tick flip open order %s: %w", toSymbol, err)
		}
	}

	rec, err := b.strat.Reverse(toSymbol, toLeverage, exitPrice, entryPrice, now, reason)
	if err != nil {
		return false, err
	}
	if err := b.saveSnapshot(); err != nil {
		return true, err
	}
	if rec != nil {
		b.notifier.Notify(notify.Flip(*rec))
	}
	return true, nil
}

func (b *Bot) closePosition(ctx context.Context, p *core.Position, price float64, now time.Time, reason core.ExitReason) error {
	if _, err := b.brk.PlaceOrder(ctx, p.Symbol, broker.Sell, p.Quantity, price, broker.Market); err != nil {
		return fmt.Errorf("tick close order %s: %w", p.Symbol, err)
	}
	rec, err := b.strat.Close(price, now, reason)
	if err != nil {
		return err
	}
	if err := b.saveSnapshot(); err != nil {
		return err
	}
	b.notifier.Notify(notify.Exit(rec))
	return nil
}

// CloseAll liquidates any open position, used on operator shutdown.
func (b *Bot) CloseAll(ctx context.Context) error {
	p := b.strat.State().Position
	if p == nil {
		return nil
	}
	price, err := b.brk.CurrentPrice(ctx, p.Symbol)
	if err != nil {
		return fmt.Errorf("close all: %w", err)
	}
	return b.closePosition(ctx, p, price, b.clock.Now(), core.BotStop)
}

func (b *Bot) saveSnapshot() error {
	if b.store == nil {
		return nil
	}
	if err := b.store.Save(state.FromState(b.strat.State())); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Run ticks until ctx is cancelled. Tick errors are logged and skipped; the
// loop itself only stops with the context.
func (b *Bot) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	log.Info().Dur("interval", every).Str("underlying", b.cfg.Underlying).Msg("live bot started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.OnTick(ctx); err != nil {
				log.Error().Err(err).Msg("tick failed")
			}
		}
	}
}
