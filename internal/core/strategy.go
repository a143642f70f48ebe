package core

import (
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"revbot/internal/calendar"
)

var (
	ErrAlreadyPositioned = errors.New("position already open")
	ErrNoPosition        = errors.New("no open position")
)

// ReversalStrategy owns the single Position, the capital ledger, and every
// risk gate around it. One instance per symbol pair; instances share nothing.
type ReversalStrategy struct {
	params Params
	cal    *calendar.Calendar

	state     State
	trades    []TradeRecord
	reversals []ReversalRecord
}

func NewStrategy(params Params, cal *calendar.Calendar) *ReversalStrategy {
	return &ReversalStrategy{
		params: params,
		cal:    cal,
		state: State{
			Capital:        params.Capital,
			InitialCapital: params.Capital,
		},
	}
}

func (s *ReversalStrategy) Params() Params { return s.params }

// State returns a copy; ReversalTimes shares no backing array with the
// strategy's own slice.
func (s *ReversalStrategy) State() State {
	st := s.state
	if st.Position != nil {
		p := *st.Position
		st.Position = &p
	}
	st.ReversalTimes = append([]time.Time(nil), s.state.ReversalTimes...)
	return st
}

func (s *ReversalStrategy) Trades() []TradeRecord {
	return append([]TradeRecord(nil), s.trades...)
}

func (s *ReversalStrategy) Reversals() []ReversalRecord {
	return append([]ReversalRecord(nil), s.reversals...)
}

// Restore replaces the ledger wholesale, used when resuming from a snapshot.
// Trade history is not restored; the ledger files carry it.
func (s *ReversalStrategy) Restore(st State) {
	if st.InitialCapital == 0 {
		st.InitialCapital = s.params.Capital
	}
	s.state = st
}

// StopLossRate returns the stop threshold for an instrument as a signed
// percentage. 2x funds get the wider band.
func (s *ReversalStrategy) StopLossRate(leverage string) float64 {
	if leverage == "2" || leverage == "-2" {
		return s.params.StopLossRate2x
	}
	return s.params.StopLossRate1x
}

// CalculatePositionSize returns the whole-share quantity for an entry at
// price. Reversal entries commit a reduced share of capital. A zero return
// means the trade is too small to place.
func (s *ReversalStrategy) CalculatePositionSize(price float64, isReversal bool) float64 {
	return sizeFor(s.params, s.state.Capital, price, isReversal)
}

func sizeFor(params Params, capital, price float64, isReversal bool) float64 {
	if price <= 0 {
		return 0
	}
	available := capital
	if isReversal {
		available *= params.ReverseRiskFactor
	}

	// Size for the expected take-profit move, capped at 92% of available
	// capital as a fee and slippage buffer.
	notional := (available * 0.5) / params.TakeProfitRate
	if limit := available * 0.92; notional > limit {
		notional = limit
	}
	if notional < params.MinNotional {
		return 0
	}
	return math.Floor(notional / price)
}

// PreviewReverse returns the quantity Reverse would open after settling the
// close at exitPrice, without mutating state. Callers that must place the
// exchange order before the ledger moves size it from this.
func (s *ReversalStrategy) PreviewReverse(exitPrice, entryPrice float64) float64 {
	p := s.state.Position
	if p == nil {
		return 0
	}
	gross := p.Quantity * p.EntryPrice
	pnlPct := (exitPrice - p.EntryPrice) / p.EntryPrice * 100
	pnl := gross * pnlPct / 100
	exitFee := p.Quantity * exitPrice * s.params.FeeRate
	return sizeFor(s.params, s.state.Capital+gross+pnl-exitFee, entryPrice, true)
}

// CanEnter reports whether a new position may be opened on the given date.
func (s *ReversalStrategy) CanEnter(day calendar.Day) bool {
	if s.state.Position != nil {
		return false
	}
	if s.state.CooldownUntil != nil {
		if day.Before(*s.state.CooldownUntil) {
			return false
		}
		s.state.CooldownUntil = nil
	}
	return true
}

// CanReverse reports whether a flip is allowed at t. The reversal window is
// pruned to the trailing 24 hours as a side effect.
func (s *ReversalStrategy) CanReverse(t time.Time) bool {
	cutoff := t.Add(-24 * time.Hour)
	kept := s.state.ReversalTimes[:0]
	for _, rt := range s.state.ReversalTimes {
		if rt.After(cutoff) {
			kept = append(kept, rt)
		}
	}
	s.state.ReversalTimes = kept

	if len(s.state.ReversalTimes) >= s.params.ReversalLimit {
		return false
	}
	if s.state.CooldownUntil != nil && s.cal.DayAt(t).Before(*s.state.CooldownUntil) {
		return false
	}
	return true
}

// Open enters a new position. It returns false with a nil error when sizing
// rejects the trade; the caller treats that as no entry.
func (s *ReversalStrategy) Open(side Side, symbol, leverage string, price float64, t time.Time) (bool, error) {
	if s.state.Position != nil {
		log.Warn().Str("symbol", symbol).Msg("open rejected: already positioned")
		return false, ErrAlreadyPositioned
	}
	if side != Long && side != Short {
		return false, errors.New("open requires Long or Short")
	}

	qty := s.CalculatePositionSize(price, false)
	if qty <= 0 {
		log.Debug().Str("symbol", symbol).Float64("price", price).Msg("entry skipped: below min notional")
		return false, nil
	}

	entryFee := qty * price * s.params.FeeRate
	s.state.Capital -= qty*price + entryFee
	s.state.Position = &Position{
		Symbol:     symbol,
		Side:       side,
		EntryPrice: price,
		Quantity:   qty,
		EntryTime:  t,
		Leverage:   leverage,
		EntryFee:   entryFee,
	}
	s.scheduleForcedClose(side, t)

	log.Info().
		Str("symbol", symbol).
		Str("side", side.String()).
		Float64("price", price).
		Float64("qty", qty).
		Msg("position opened")
	return true, nil
}

func (s *ReversalStrategy) scheduleForcedClose(side Side, t time.Time) {
	hold := s.params.LongMaxHoldDays
	if side == Short {
		hold = s.params.ShortMaxHoldDays
	}
	if d, ok := s.cal.AddTradingDays(s.cal.DayAt(t), hold); ok {
		s.state.ForcedClose = &d
	}
}

// CheckExit evaluates stop-loss and take-profit at price. Thresholds are
// inclusive on the stop side and the profit side.
func (s *ReversalStrategy) CheckExit(price float64, leverage string) (ExitReason, bool) {
	p := s.state.Position
	if p == nil || p.EntryPrice <= 0 {
		return "", false
	}
	pnlPct := (price - p.EntryPrice) / p.EntryPrice * 100
	if pnlPct <= s.StopLossRate(leverage) {
		return StopLoss, true
	}
	if pnlPct >= s.params.TakeProfitRate*100 {
		return TakeProfit, true
	}
	return "", false
}

// CheckForcedClose reports whether the max-hold deadline has arrived.
func (s *ReversalStrategy) CheckForcedClose(t time.Time) bool {
	if s.state.Position == nil || s.state.ForcedClose == nil {
		return false
	}
	return !s.cal.DayAt(t).Before(*s.state.ForcedClose)
}

// Close liquidates the open position at price and settles the ledger. The
// returned record's PnL is net of entry and exit fees.
func (s *ReversalStrategy) Close(price float64, t time.Time, reason ExitReason) (TradeRecord, error) {
	p := s.state.Position
	if p == nil {
		log.Warn().Str("reason", string(reason)).Msg("close rejected: no position")
		return TradeRecord{}, ErrNoPosition
	}

	gross := p.Quantity * p.EntryPrice
	pnlPct := (price - p.EntryPrice) / p.EntryPrice * 100
	pnl := gross * pnlPct / 100
	exitFee := p.Quantity * price * s.params.FeeRate

	s.state.Capital += gross + pnl - exitFee

	rec := TradeRecord{
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		ExitPrice:  price,
		Quantity:   p.Quantity,
		EntryTime:  p.EntryTime,
		ExitTime:   t,
		PnL:        pnl - p.EntryFee - exitFee,
		PnLPct:     pnlPct,
		Fee:        p.EntryFee + exitFee,
		Reason:     reason,
	}
	s.trades = append(s.trades, rec)

	s.state.Position = nil
	s.state.ForcedClose = nil
	s.applyCloseCooldown(rec, t)

	log.Info().
		Str("symbol", rec.Symbol).
		Str("reason", string(reason)).
		Float64("exit", price).
		Float64("pnl", rec.PnL).
		Msg("position closed")
	return rec, nil
}

func (s *ReversalStrategy) applyCloseCooldown(rec TradeRecord, t time.Time) {
	day := s.cal.DayAt(t)
	switch {
	case rec.Reason == StopLoss:
		if d, ok := s.cal.AddTradingDays(day, s.params.CooldownDays); ok {
			s.state.CooldownUntil = &d
		}
	case rec.Reason == ForceClose && rec.PnL < 0:
		if d, ok := s.cal.AddTradingDays(day, s.params.ForceCloseCooldownDays); ok {
			s.state.CooldownUntil = &d
		}
	}
}

// Reverse closes the current position for reason and immediately opens the
// opposite instrument at entryPrice. When sizing rejects the flip the
// strategy simply goes flat; the close still stands.
func (s *ReversalStrategy) Reverse(toSymbol, toLeverage string, exitPrice, entryPrice float64, t time.Time, reason ExitReason) (*ReversalRecord, error) {
	p := s.state.Position
	if p == nil {
		log.Warn().Msg("reverse rejected: no position")
		return nil, ErrNoPosition
	}
	fromSymbol, fromSide := p.Symbol, p.Side
	exitFee := p.Quantity * exitPrice * s.params.FeeRate

	if _, err := s.Close(exitPrice, t, reason); err != nil {
		return nil, err
	}

	toSide := Long
	if fromSide == Long {
		toSide = Short
	}

	qty := s.CalculatePositionSize(entryPrice, true)
	if qty <= 0 {
		log.Info().Str("to", toSymbol).Msg("reversal sized to zero: staying flat")
		return nil, nil
	}

	entryFee := qty * entryPrice * s.params.FeeRate
	s.state.Capital -= qty*entryPrice + entryFee
	s.state.Position = &Position{
		Symbol:     toSymbol,
		Side:       toSide,
		EntryPrice: entryPrice,
		Quantity:   qty,
		EntryTime:  t,
		Leverage:   toLeverage,
		EntryFee:   entryFee,
	}
	s.scheduleForcedClose(toSide, t)

	// The flip restarts the cooldown clock and counts against the rolling
	// 24h limit.
	if d, ok := s.cal.AddTradingDays(s.cal.DayAt(t), s.params.CooldownDays); ok {
		s.state.CooldownUntil = &d
	}
	s.state.ReversalTimes = append(s.state.ReversalTimes, t)

	rec := ReversalRecord{
		Ts:         t,
		FromSymbol: fromSymbol,
		ToSymbol:   toSymbol,
		FromSide:   fromSide,
		ToSide:     toSide,
		ExitPrice:  exitPrice,
		EntryPrice: entryPrice,
		Quantity:   qty,
		Fee:        exitFee + entryFee,
		Reason:     reason,
	}
	s.reversals = append(s.reversals, rec)

	log.Info().
		Str("from", fromSymbol).
		Str("to", toSymbol).
		Float64("qty", qty).
		Msg("reversal executed")
	return &rec, nil
}

// MarkToMarket returns current equity with the open position valued at ref.
func (s *ReversalStrategy) MarkToMarket(ref float64) float64 {
	eq := s.state.Capital
	if p := s.state.Position; p != nil {
		eq += p.Quantity * ref
	}
	return eq
}

// DrawdownExceeded reports whether equity at ref has fallen past the
// configured maximum loss fraction of initial capital.
func (s *ReversalStrategy) DrawdownExceeded(ref float64) bool {
	if s.params.MaxDrawdown <= 0 {
		return false
	}
	eq := s.MarkToMarket(ref)
	return eq <= s.state.InitialCapital*(1-s.params.MaxDrawdown)
}
