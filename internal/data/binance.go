package data

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"revbot/internal/core"
)

// klineChunk is the exchange's per-request kline cap.
const klineChunk = 1000

// Fetcher downloads historical klines and serves spot quotes.
type Fetcher struct {
	client *binance.Client
}

func NewFetcher(apiKey, secretKey string) *Fetcher {
	return &Fetcher{client: binance.NewClient(apiKey, secretKey)}
}

// FetchBars downloads [start, end) klines for symbol at interval, paging
// through the per-request cap.
func (f *Fetcher) FetchBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]core.Bar, error) {
	var bars []core.Bar
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()

	for cursor < endMs {
		klines, err := f.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(cursor).
			EndTime(endMs).
			Limit(klineChunk).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch klines %s %s: %w", symbol, interval, err)
		}
		if len(klines) == 0 {
			break
		}
		for _, k := range klines {
			bar, err := parseKline(k)
			if err != nil {
				return nil, fmt.Errorf("parse kline %s: %w", symbol, err)
			}
			bars = append(bars, bar)
		}
		next := klines[len(klines)-1].CloseTime + 1
		if next <= cursor {
			break
		}
		cursor = next
	}
	log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("klines downloaded")
	return bars, nil
}

func parseKline(k *binance.Kline) (core.Bar, error) {
	vals := make([]float64, 5)
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Bar{}, err
		}
		vals[i] = v
	}
	return core.Bar{
		Ts:     time.UnixMilli(k.OpenTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// RecentBars downloads the latest limit klines for symbol.
func (f *Fetcher) RecentBars(ctx context.Context, symbol, interval string, limit int) ([]core.Bar, error) {
	if limit <= 0 || limit > klineChunk {
		limit = klineChunk
	}
	klines, err := f.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch recent klines %s %s: %w", symbol, interval, err)
	}
	bars := make([]core.Bar, 0, len(klines))
	for _, k := range klines {
		bar, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("parse kline %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// CurrentPrice returns the latest spot price for symbol.
func (f *Fetcher) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := f.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price %s: %w", symbol, err)
	}
	for _, p := range prices {
		if p.Symbol == symbol {
			v, err := strconv.ParseFloat(p.Price, 64)
			if err != nil {
				return 0, fmt.Errorf("parse price %s: %w", symbol, err)
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("fetch price %s: no quote returned", symbol)
}

// FetchTriple downloads the underlying and both leveraged instruments in
// parallel. Results come back in argument order.
func (f *Fetcher) FetchTriple(ctx context.Context, symbols [3]string, interval string, start, end time.Time) ([3][]core.Bar, error) {
	var out [3][]core.Bar
	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			bars, err := f.FetchBars(gctx, sym, interval, start, end)
			if err != nil {
				return err
			}
			out[i] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
