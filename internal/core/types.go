package core

import (
	"time"

	"revbot/internal/calendar"
)

type Side int

const (
	Flat Side = iota
	Long
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	}
	return "FLAT"
}

// ExitReason labels why a position was closed.
type ExitReason string

const (
	StopLoss   ExitReason = "STOP_LOSS"
	TakeProfit ExitReason = "TAKE_PROFIT"
	ForceClose ExitReason = "FORCE_CLOSE"
	FinalClose ExitReason = "FINAL_CLOSE"
	BotStop    ExitReason = "BOT_STOP"
)

// Indicators is the snapshot attached to a bar once enough history exists.
// A nil pointer on Bar means the warm-up window is not filled yet.
type Indicators struct {
	RSI        float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
}

type Bar struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Ind    *Indicators
}

// Position is the single open exposure. Leverage is the instrument's
// multiplier code ("1", "2", "-1", "-2"); sign encodes bull vs bear fund.
type Position struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	Quantity   float64
	EntryTime  time.Time
	Leverage   string
	EntryFee   float64
}

// Params holds every tunable of the strategy. Stop-loss rates are signed
// percentages (negative), take-profit is a positive fraction.
type Params struct {
	Capital                float64
	StopLossRate1x         float64
	StopLossRate2x         float64
	TakeProfitRate         float64
	LongMaxHoldDays        int
	ShortMaxHoldDays       int
	CooldownDays           int
	ForceCloseCooldownDays int
	ReversalLimit          int
	ReverseRiskFactor      float64
	ReverseTrigger         bool
	FeeRate                float64
	MinNotional            float64
	MaxDrawdown            float64
}

func DefaultParams() Params {
	return Params{
		Capital:                1200,
		StopLossRate1x:         -3.0,
		StopLossRate2x:         -8.0,
		TakeProfitRate:         0.08,
		LongMaxHoldDays:        5,
		ShortMaxHoldDays:       1,
		CooldownDays:           1,
		ForceCloseCooldownDays: 1,
		ReversalLimit:          2,
		ReverseRiskFactor:      0.8,
		ReverseTrigger:         true,
		FeeRate:                0.001,
		MinNotional:            100,
		MaxDrawdown:            0.10,
	}
}

// TradeRecord is one closed round trip. PnL is net of both fees, so summing
// PnL over all records reconciles exactly against the capital ledger.
type TradeRecord struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	EntryTime  time.Time
	ExitTime   time.Time
	PnL        float64
	PnLPct     float64
	Fee        float64
	Reason     ExitReason
}

// ReversalRecord is one same-bar flip from a stopped-out position into the
// opposite instrument. Fee covers both flip legs: the exit fee of the closed
// position and the entry fee of the new one.
type ReversalRecord struct {
	Ts         time.Time
	FromSymbol string
	ToSymbol   string
	FromSide   Side
	ToSide     Side
	ExitPrice  float64
	EntryPrice float64
	Quantity   float64
	Fee        float64
	Reason     ExitReason
}

// State is the strategy's mutable ledger, kept as one value so snapshots and
// tests see a consistent view.
type State struct {
	Position       *Position
	Capital        float64
	InitialCapital float64
	ForcedClose    *calendar.Day
	CooldownUntil  *calendar.Day
	ReversalTimes  []time.Time
}

type EquityPoint struct {
	Ts     time.Time
	Equity float64
}
