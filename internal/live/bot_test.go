package live

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"revbot/internal/broker"
	"revbot/internal/calendar"
	"revbot/internal/core"
	"revbot/internal/state"
)

// 15:10 UTC in January is 00:10 KST, inside the winter REGULAR session.
var tickTime = time.Date(2024, 1, 10, 15, 10, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeFeed struct {
	ind *core.Indicators
	err error
}

func (f fakeFeed) RecentBars(_ context.Context, _ string, _ string, limit int) ([]core.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	bars := make([]core.Bar, limit)
	hold := &core.Indicators{RSI: 40, MACD: 0, MACDSignal: 0, MACDHist: 0}
	for i := range bars {
		bars[i] = core.Bar{Ts: tickTime.Add(time.Duration(i-limit) * time.Hour), Close: 100, Ind: hold}
	}
	bars[len(bars)-1].Ind = f.ind
	return bars, nil
}

type placedOrder struct {
	symbol string
	side   broker.OrderSide
	qty    float64
	price  float64
}

type fakeBroker struct {
	prices   map[string]float64
	priceErr error
	orderErr error
	orders   []placedOrder
}

func (b *fakeBroker) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	if b.priceErr != nil {
		return 0, b.priceErr
	}
	p, ok := b.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", symbol)
	}
	return p, nil
}

func (b *fakeBroker) PlaceOrder(_ context.Context, symbol string, side broker.OrderSide, qty, price float64, _ broker.OrderKind) (*broker.Confirmation, error) {
	if b.orderErr != nil {
		return nil, b.orderErr
	}
	b.orders = append(b.orders, placedOrder{symbol: symbol, side: side, qty: qty, price: price})
	return &broker.Confirmation{Symbol: symbol, Side: side, Quantity: qty, Price: price, FilledAt: tickTime}, nil
}

type recordingNotifier struct{ messages []string }

func (n *recordingNotifier) Notify(text string) { n.messages = append(n.messages, text) }

func newTestBot(t *testing.T, params core.Params, brk *fakeBroker, feed Feed) (*Bot, *core.ReversalStrategy, *state.Store, *recordingNotifier) {
	t.Helper()
	cal := calendar.New(calendar.US,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))
	strat := core.NewStrategy(params, cal)
	store := state.New(filepath.Join(t.TempDir(), "position.json"))
	notifier := &recordingNotifier{}

	bot, err := New(Config{
		Underlying:   "TSLA",
		Bull:         "TSLL",
		BullLeverage: "2",
		Bear:         "TSLQ",
		BearLeverage: "-2",
		Interval:     "1h",
	}, strat, cal, brk, feed, store, notifier, fixedClock{t: tickTime})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return bot, strat, store, notifier
}

func buySignal() *core.Indicators {
	return &core.Indicators{RSI: 40, MACD: 1.0, MACDSignal: 0.5, MACDHist: 0.5}
}

func holdSignal() *core.Indicators {
	return &core.Indicators{RSI: 40, MACD: 0, MACDSignal: 0, MACDHist: 0}
}

func TestTickOpensOnBuySignal(t *testing.T) {
	brk := &fakeBroker{prices: map[string]float64{"TSLL": 10.0, "TSLQ": 5.0}}
	bot, strat, store, notifier := newTestBot(t, core.DefaultParams(), brk, fakeFeed{ind: buySignal()})

	if err := bot.OnTick(context.Background()); err != nil {
		t.Fatalf("OnTick: %v", err)
	}

	p := strat.State().Position
	if p == nil || p.Symbol != "TSLL" || p.Side != core.Long {
		t.Fatalf("position = %+v, want long TSLL", p)
	}
	if len(brk.orders) != 1 || brk.orders[0].side != broker.Buy || brk.orders[0].qty != 110 {
		t.Fatalf("orders = %+v, want one BUY of 110", brk.orders)
	}
	snap, err := store.Load()
	if err != nil || snap == nil || snap.Symbol != "TSLL" {
		t.Fatalf("snapshot after entry = %+v, %v", snap, err)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("got %d notifications, want 1 entry message", len(notifier.messages))
	}
}

func TestTickHoldSignalDoesNothing(t *testing.T) {
	brk := &fakeBroker{prices: map[string]float64{"TSLL": 10.0}}
	bot, strat, _, _ := newTestBot(t, core.DefaultParams(), brk, fakeFeed{ind: holdSignal()})

	if err := bot.OnTick(context.Background()); err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if strat.State().Position != nil || len(brk.orders) != 0 {
		t.Fatal("hold signal must not trade")
	}
}

func TestTickFeedFailureSkipsCycle(t *testing.T) {
	brk := &fakeBroker{prices: map[string]float64{"TSLL": 10.0}}
	bot, strat, _, notifier := newTestBot(t, core.DefaultParams(), brk, fakeFeed{err: errors.New("feed down")})

	if err := bot.OnTick(context.Background()); err == nil {
		t.Fatal("a feed failure must surface as a tick error")
	}
	if strat.State().Position != nil || len(brk.orders) != 0 {
		t.Fatal("a failed cycle must not mutate state")
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("got %d notifications, want 1 error message", len(notifier.messages))
	}
}

func TestTickOrderFailureLeavesStateUntouched(t *testing.T) {
	brk := &fakeBroker{
		prices:   map[string]float64{"TSLL": 10.0},
		orderErr: errors.New("exchange rejected"),
	}
	bot, strat, store, _ := newTestBot(t, core.DefaultParams(), brk, fakeFeed{ind: buySignal()})

	if err := bot.OnTick(context.Background()); err == nil {
		t.Fatal("a rejected order must surface as a tick error")
	}
	if strat.State().Position != nil {
		t.Fatal("no fill, no position")
	}
	if snap, _ := store.Load(); snap != nil {
		t.Fatal("no fill, no snapshot")
	}
}

func TestTickStopLossCloses(t *testing.T) {
	brk := &fakeBroker{prices: map[string]float64{"TSLL": 9.2, "TSLQ": 5.0}}
	params := core.DefaultParams()
	params.ReverseTrigger = false
	bot, strat, store, notifier := newTestBot(t, params, brk, fakeFeed{ind: holdSignal()})

	entry := tickTime.Add(-24 * time.Hour)
	if ok, _ := strat.Open(core.Long, "TSLL", "2", 10.0, entry); !ok {
		t.Fatal("seed open failed")
	}

	if err := bot.OnTick(context.Background()); err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if strat.State().Position != nil {
		t.Fatal("stop-loss tick must close the position")
	}
	trades := strat.Trades()
	if len(trades) != 1 || trades[0].Reason != core.StopLoss {
		t.Fatalf("trades = %+v, want one STOP_LOSS", trades)
	}
	if len(brk.orders) != 1 || brk.orders[0].side != broker.Sell {
		t.Fatalf("orders = %+v, want one SELL", brk.orders)
	}
	snap, err := store.Load()
	if err != nil || snap == nil {
		t.Fatalf("snapshot = %v, %v", snap, err)
	}
	if snap.Symbol != "" {
		t.Fatalf("snapshot should be flat, got %+v", snap)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("got %d notifications, want 1 exit message", len(notifier.messages))
	}
}

func TestTickStopLossFlips(t *testing.T) {
	brk := &fakeBroker{prices: map[string]float64{"TSLL": 9.2, "TSLQ": 5.0}}
	bot, strat, _, _ := newTestBot(t, core.DefaultParams(), brk, fakeFeed{ind: holdSignal()})

	entry := tickTime.Add(-24 * time.Hour)
	if ok, _ := strat.Open(core.Long, "TSLL", "2", 10.0, entry); !ok {
		t.Fatal("seed open failed")
	}

	if err := bot.OnTick(context.Background()); err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	p := strat.State().Position
	if p == nil || p.Symbol != "TSLQ" || p.Side != core.Short {
		t.Fatalf("position after flip = %+v, want short TSLQ", p)
	}
	if len(strat.Reversals()) != 1 {
		t.Fatalf("reversals = %+v, want 1", strat.Reversals())
	}
	// Close order for the old leg, then an open order for the new one.
	if len(brk.orders) != 2 || brk.orders[0].symbol != "TSLL" || brk.orders[1].symbol != "TSLQ" {
		t.Fatalf("orders = %+v", brk.orders)
	}
}

func TestDrawdownHaltLiquidates(t *testing.T) {
	// Price dropped 7%: inside the 8% stop but past a 5% drawdown cap.
	brk := &fakeBroker{prices: map[string]float64{"TSLL": 9.3, "TSLQ": 5.0}}
	params := core.DefaultParams()
	params.MaxDrawdown = 0.05
	bot, strat, _, notifier := newTestBot(t, params, brk, fakeFeed{ind: holdSignal()})

	entry := tickTime.Add(-24 * time.Hour)
	if ok, _ := strat.Open(core.Long, "TSLL", "2", 10.0, entry); !ok {
		t.Fatal("seed open failed")
	}

	if err := bot.OnTick(context.Background()); err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if !bot.Halted() {
		t.Fatal("drawdown breach must halt the bot")
	}
	if strat.State().Position != nil {
		t.Fatal("a halt must liquidate the open position")
	}
	trades := strat.Trades()
	if len(trades) != 1 || trades[0].Reason != core.BotStop {
		t.Fatalf("trades = %+v, want one BOT_STOP", trades)
	}
	if len(brk.orders) != 1 || brk.orders[0].side != broker.Sell {
		t.Fatalf("orders = %+v, want one liquidating SELL", brk.orders)
	}
	if len(notifier.messages) != 2 {
		t.Fatalf("got %d notifications, want halt plus exit", len(notifier.messages))
	}
	brk.orders = nil
	if err := bot.OnTick(context.Background()); err != nil {
		t.Fatalf("OnTick while halted: %v", err)
	}
	if len(brk.orders) != 0 {
		t.Fatal("halted bot must not place orders")
	}
}

func TestDrawdownValuesHeldSymbolAfterFlip(t *testing.T) {
	// The flip moves the book into TSLQ mid-tick; the guard must value the
	// 163-share bear leg at TSLQ's quote, not the TSLL price from the top of
	// the cycle.
	brk := &fakeBroker{prices: map[string]float64{"TSLL": 9.2, "TSLQ": 5.0}}
	params := core.DefaultParams()
	params.MaxDrawdown = 0.07
	bot, strat, _, _ := newTestBot(t, params, brk, fakeFeed{ind: holdSignal()})

	entry := tickTime.Add(-24 * time.Hour)
	if ok, _ := strat.Open(core.Long, "TSLL", "2", 10.0, entry); !ok {
		t.Fatal("seed open failed")
	}

	if err := bot.OnTick(context.Background()); err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	// Post-flip equity is 294.07 + 163*5.00 = 1109.07, a 7.58% drawdown.
	if !bot.Halted() {
		t.Fatal("post-flip equity breaches the 7% cap: bot must halt")
	}
	trades := strat.Trades()
	if len(trades) != 2 || trades[0].Reason != core.StopLoss || trades[1].Reason != core.BotStop {
		t.Fatalf("trades = %+v, want STOP_LOSS then BOT_STOP", trades)
	}
	if trades[1].Symbol != "TSLQ" || trades[1].ExitPrice != 5.0 {
		t.Fatalf("liquidation = %+v, want TSLQ at 5.00", trades[1])
	}
	if len(brk.orders) != 3 || brk.orders[2].symbol != "TSLQ" || brk.orders[2].side != broker.Sell {
		t.Fatalf("orders = %+v, want flip close, flip open, liquidating SELL", brk.orders)
	}
}

func TestResumeRestoresDeadlines(t *testing.T) {
	brk := &fakeBroker{prices: map[string]float64{"TSLL": 10.0, "TSLQ": 5.0}}
	bot, strat, store, _ := newTestBot(t, core.DefaultParams(), brk, fakeFeed{ind: holdSignal()})

	if err := store.Save(state.Snapshot{
		Symbol: "TSLL", Side: "LONG", EntryPrice: 10, Quantity: 110,
		EntryTime: tickTime.Add(-48 * time.Hour), Leverage: "2", EntryFee: 1.1,
		Capital: 98.9, InitialCapital: 1200,
		ForcedClose: "2024-01-10", CooldownUntil: "2024-01-12",
	}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	if err := bot.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	st := strat.State()
	if st.Position == nil || st.Position.Quantity != 110 {
		t.Fatalf("restored position = %+v", st.Position)
	}
	if st.ForcedClose == nil || st.ForcedClose.String() != "2024-01-10" {
		t.Fatalf("restored forced close = %v", st.ForcedClose)
	}

	// The restored deadline is due today, so the next tick force-closes.
	if err := bot.OnTick(context.Background()); err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	trades := strat.Trades()
	if len(trades) != 1 || trades[0].Reason != core.ForceClose {
		t.Fatalf("trades = %+v, want one FORCE_CLOSE", trades)
	}
}

func TestCloseAll(t *testing.T) {
	brk := &fakeBroker{prices: map[string]float64{"TSLL": 10.5}}
	bot, strat, _, _ := newTestBot(t, core.DefaultParams(), brk, fakeFeed{ind: holdSignal()})

	if ok, _ := strat.Open(core.Long, "TSLL", "2", 10.0, tickTime.Add(-time.Hour)); !ok {
		t.Fatal("seed open failed")
	}
	if err := bot.CloseAll(context.Background()); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	trades := strat.Trades()
	if len(trades) != 1 || trades[0].Reason != core.BotStop {
		t.Fatalf("trades = %+v, want one BOT_STOP", trades)
	}
}
