package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/cinar/indicator"

	"revbot/internal/core"
)

const rsiPeriod = 5

// LoadCSV reads a bar series from path. Columns: ts,open,high,low,close,volume
// with RFC3339 timestamps, one header row, ascending order not assumed.
func LoadCSV(path string) ([]core.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read bars %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("read bars %s: no data rows", path)
	}

	bars := make([]core.Bar, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("read bars %s: row %d has %d columns", path, i+2, len(row))
		}
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("read bars %s: row %d: %w", path, i+2, err)
		}
		vals := make([]float64, 5)
		for j := 0; j < 5; j++ {
			v, err := strconv.ParseFloat(row[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("read bars %s: row %d col %d: %w", path, i+2, j+2, err)
			}
			vals[j] = v
		}
		bars = append(bars, core.Bar{
			Ts: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Ts.Before(bars[j].Ts) })
	return bars, nil
}

// SaveCSV writes bars in the format LoadCSV reads.
func SaveCSV(path string, bars []core.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bars: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ts", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Ts.Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write bars %s: %w", path, err)
	}
	return f.Close()
}

// Align inner-joins bar series on timestamp, returning slices of equal
// length in ascending order. Bars present in one series but not all are
// dropped; replay must never see a timestamp with a missing instrument.
func Align(series ...[]core.Bar) [][]core.Bar {
	out := make([][]core.Bar, len(series))
	if len(series) == 0 {
		return out
	}

	// Keyed on the instant, not time.Time equality, so the same timestamp
	// parsed in different zone offsets still joins.
	counts := make(map[int64]int)
	for _, s := range series {
		seen := make(map[int64]struct{}, len(s))
		for _, b := range s {
			k := b.Ts.UnixNano()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			counts[k]++
		}
	}

	for i, s := range series {
		kept := make([]core.Bar, 0, len(s))
		seen := make(map[int64]struct{}, len(s))
		for _, b := range s {
			k := b.Ts.UnixNano()
			if counts[k] != len(series) {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			kept = append(kept, b)
		}
		sort.Slice(kept, func(a, b int) bool { return kept[a].Ts.Before(kept[b].Ts) })
		out[i] = kept
	}
	return out
}

// EnsureIndicators computes indicators unless the series already carries a
// snapshot on every bar, e.g. bars loaded from pre-enriched history.
func EnsureIndicators(bars []core.Bar) []core.Bar {
	for _, b := range bars {
		if b.Ind == nil {
			return EnrichIndicators(bars)
		}
	}
	return bars
}

// EnrichIndicators computes RSI and MACD over the close series and attaches
// a snapshot to every bar. Values inside the indicator warm-up are
// numerically defined but unreliable; the replay's 50-bar floor covers that.
func EnrichIndicators(bars []core.Bar) []core.Bar {
	if len(bars) == 0 {
		return bars
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	_, rsi := indicator.RsiPeriod(rsiPeriod, closes)
	macd, macdSignal := indicator.Macd(closes)

	out := make([]core.Bar, len(bars))
	copy(out, bars)
	for i := range out {
		out[i].Ind = &core.Indicators{
			RSI:        rsi[i],
			MACD:       macd[i],
			MACDSignal: macdSignal[i],
			MACDHist:   macd[i] - macdSignal[i],
		}
	}
	return out
}
