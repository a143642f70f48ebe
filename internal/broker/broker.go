// Package broker defines the narrow order-placement surface the live bot
// consumes. The engine itself never talks to an exchange.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type OrderKind string

const (
	Market OrderKind = "MARKET"
	Limit  OrderKind = "LIMIT"
)

type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Confirmation is the broker's acknowledgment of a filled order.
type Confirmation struct {
	OrderID  string
	Symbol   string
	Side     OrderSide
	Quantity float64
	Price    float64
	FilledAt time.Time
}

// Quoter serves the latest price for a symbol.
type Quoter interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Broker places orders. A nil confirmation with a non-nil error means the
// cycle must be skipped, never treated as a zero fill.
type Broker interface {
	Quoter
	PlaceOrder(ctx context.Context, symbol string, side OrderSide, qty, price float64, kind OrderKind) (*Confirmation, error)
}

var ErrRejected = errors.New("order rejected")

// Paper fills every order at the quoted price. It backs the live bot in dry
// runs and tests.
type Paper struct {
	quoter Quoter
	seq    atomic.Int64
}

func NewPaper(q Quoter) *Paper {
	return &Paper{quoter: q}
}

func (p *Paper) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return p.quoter.CurrentPrice(ctx, symbol)
}

func (p *Paper) PlaceOrder(ctx context.Context, symbol string, side OrderSide, qty, price float64, kind OrderKind) (*Confirmation, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity %v", ErrRejected, qty)
	}
	fill := price
	if kind == Market {
		quoted, err := p.quoter.CurrentPrice(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("paper fill %s: %w", symbol, err)
		}
		fill = quoted
	}
	conf := &Confirmation{
		OrderID:  fmt.Sprintf("paper-%d", p.seq.Add(1)),
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		Price:    fill,
		FilledAt: time.Now(),
	}
	log.Debug().Str("symbol", symbol).Str("side", string(side)).Float64("qty", qty).Float64("price", fill).Msg("paper fill")
	return conf, nil
}
