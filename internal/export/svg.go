package export

import (
	"bytes"
	"fmt"

	"revbot/internal/core"
)

type Marker struct {
	X    float64
	Y    float64
	Kind string // "buy" | "sell"
}

// EquityMarkers derives chart markers from the trade ledger: green at each
// entry, red at each exit, positioned on the equity time axis.
func EquityMarkers(points []core.EquityPoint, trades []core.TradeRecord) []Marker {
	equityAt := func(x int64) float64 {
		for _, p := range points {
			if p.Ts.Unix() >= x {
				return p.Equity
			}
		}
		if len(points) == 0 {
			return 0
		}
		return points[len(points)-1].Equity
	}
	var marks []Marker
	for _, t := range trades {
		ex := t.EntryTime.Unix()
		marks = append(marks,
			Marker{X: float64(ex), Y: equityAt(ex), Kind: "buy"},
			Marker{X: float64(t.ExitTime.Unix()), Y: equityAt(t.ExitTime.Unix()), Kind: "sell"},
		)
	}
	return marks
}

// EquitySVG renders the curve as a single polyline with trade markers.
func EquitySVG(w, h int, points []core.EquityPoint, marks []Marker, title string) []byte {
	if w <= 0 {
		w = 900
	}
	if h <= 0 {
		h = 300
	}
	if len(points) == 0 {
		return nil
	}

	minx := float64(points[0].Ts.Unix())
	maxx := float64(points[len(points)-1].Ts.Unix())
	miny, maxy := points[0].Equity, points[0].Equity
	for _, p := range points {
		if p.Equity < miny {
			miny = p.Equity
		}
		if p.Equity > maxy {
			maxy = p.Equity
		}
	}
	sx := float64(w-80) / (maxx - minx + 1e-9)
	sy := float64(h-60) / (maxy - miny + 1e-9)

	var b bytes.Buffer
	fmt.Fprintf(&b, "<svg xmlns='http://www.w3.org/2000/svg' width='%d' height='%d' viewBox='0 0 %d %d'>", w, h, w, h)
	b.WriteString("<rect width='100%' height='100%' fill='#0b0f17'/>")
	b.WriteString("<g transform='translate(40,20)'>")
	fmt.Fprintf(&b, "<line x1='0' y1='0' x2='0' y2='%d' stroke='#1f2837' />", h-60)
	fmt.Fprintf(&b, "<line x1='0' y1='%d' x2='%d' y2='%d' stroke='#1f2837' />", h-60, w-80, h-60)

	b.WriteString("<polyline fill='none' stroke='#59a6ff' stroke-width='1.5' points='")
	for i, p := range points {
		x := (float64(p.Ts.Unix()) - minx) * sx
		y := float64(h-60) - (p.Equity-miny)*sy
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.2f,%.2f", x, y)
	}
	b.WriteString("'/>")

	for _, m := range marks {
		x := (m.X - minx) * sx
		y := float64(h-60) - (m.Y-miny)*sy
		color := "#8bff9b"
		if m.Kind == "sell" {
			color = "#ff7a7a"
		}
		fmt.Fprintf(&b, "<circle cx='%.2f' cy='%.2f' r='3' fill='%s' />", x, y, color)
	}
	b.WriteString("</g>")
	fmt.Fprintf(&b, "<text x='16' y='18' fill='#e6edf3' font-family='Inter' font-size='14'>%s</text>", title)
	b.WriteString("</svg>")
	return b.Bytes()
}
