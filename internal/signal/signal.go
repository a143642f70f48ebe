// Package signal derives entry and exit signals from an RSI/MACD snapshot.
// Generation is a pure function of the snapshot and the current position
// side; all state lives with the caller.
package signal

import (
	"math"

	"revbot/internal/core"
)

type Kind string

const (
	Buy  Kind = "BUY"
	Sell Kind = "SELL"
	Hold Kind = "HOLD"
)

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
	rsiMiddle     = 50.0
)

// Signal carries the decision, its confidence in [0,1], and a human-readable
// reason for the ledger and notifications. Entries require confidence > 0.5.
type Signal struct {
	Kind       Kind
	Confidence float64
	Reason     string
}

// Generate maps one indicator snapshot to a signal. A snapshot with any
// non-finite value yields a zero-confidence HOLD.
func Generate(ind core.Indicators, side core.Side) Signal {
	if !ready(ind) {
		return Signal{Kind: Hold, Confidence: 0, Reason: "indicators not ready"}
	}

	rsi := ind.RSI
	bullish := ind.MACD > ind.MACDSignal && ind.MACDHist > 0
	bearish := ind.MACD < ind.MACDSignal && ind.MACDHist < 0

	switch side {
	case core.Long:
		if rsi > rsiOverbought && bearish && ind.MACDHist < -0.5 {
			return Signal{Kind: Sell, Confidence: 0.7, Reason: "overbought with bearish momentum"}
		}
		if rsi >= rsiOversold && rsi <= rsiOverbought && bullish {
			return Signal{Kind: Hold, Confidence: 0.5, Reason: "trend intact"}
		}
		return Signal{Kind: Hold, Confidence: 0.3, Reason: "no exit condition"}

	case core.Short:
		// Labeled SELL for symmetry with the long branch; callers treat a
		// confident signal while short as the exit/flip trigger.
		if rsi < rsiOversold && bullish && ind.MACDHist > 0.5 {
			return Signal{Kind: Sell, Confidence: 0.7, Reason: "oversold with bullish momentum"}
		}
		if rsi >= rsiOversold && rsi <= rsiOverbought && bearish {
			return Signal{Kind: Hold, Confidence: 0.5, Reason: "trend intact"}
		}
		return Signal{Kind: Hold, Confidence: 0.3, Reason: "no exit condition"}
	}

	// Flat: first matching band wins.
	switch {
	case rsi < rsiOversold && bullish:
		return Signal{Kind: Hold, Confidence: 0.5, Reason: "oversold, waiting for confirmation"}
	case rsi >= rsiOversold && rsi < rsiMiddle && bullish:
		return Signal{Kind: Buy, Confidence: 0.8, Reason: "bullish momentum from the lower band"}
	case rsi > rsiOverbought && bearish:
		return Signal{Kind: Hold, Confidence: 0.5, Reason: "overbought, waiting for confirmation"}
	case rsi >= rsiMiddle && rsi <= rsiOverbought && bearish:
		return Signal{Kind: Sell, Confidence: 0.8, Reason: "bearish momentum from the upper band"}
	}
	return Signal{Kind: Hold, Confidence: 0.3, Reason: "no setup"}
}

// Entry reports whether sig clears the entry gate and, if so, which side it
// opens.
func Entry(sig Signal) (core.Side, bool) {
	if sig.Confidence <= 0.5 {
		return core.Flat, false
	}
	switch sig.Kind {
	case Buy:
		return core.Long, true
	case Sell:
		return core.Short, true
	}
	return core.Flat, false
}

func ready(ind core.Indicators) bool {
	for _, v := range []float64{ind.RSI, ind.MACD, ind.MACDSignal, ind.MACDHist} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
