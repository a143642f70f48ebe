package calendar

import (
	"time"
)

// Market selects which holiday table applies.
type Market string

const (
	US  Market = "US"
	KRX Market = "KRX"
)

// Day is a calendar date without a time component. Strategy-level deadlines
// (forced close, cooldown) are dates, not instants, so comparing Days avoids
// the timezone bugs that come from comparing truncated time.Time values.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

func (d Day) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Day) After(o Day) bool { return o.Before(d) }

func (d Day) String() string {
	return d.Time(time.UTC).Format("2006-01-02")
}

func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

// Calendar is the ordered list of valid trading days for one market over a
// fixed span, built once per run and shared by live and backtest modes.
type Calendar struct {
	market Market
	loc    *time.Location
	days   []Day
	index  map[Day]int
}

// New builds the calendar for [from, to] in the market's exchange timezone.
// Weekends and the market's holiday table are excluded.
func New(market Market, from, to time.Time) *Calendar {
	loc := marketLocation(market)
	c := &Calendar{market: market, loc: loc, index: make(map[Day]int)}

	start := DayOf(from.In(loc))
	end := DayOf(to.In(loc))
	for t := start.Time(loc); !DayOf(t).After(end); t = t.AddDate(0, 0, 1) {
		d := DayOf(t)
		if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
			continue
		}
		if isHoliday(market, d) {
			continue
		}
		c.index[d] = len(c.days)
		c.days = append(c.days, d)
	}
	return c
}

func marketLocation(m Market) *time.Location {
	name := "America/New_York"
	if m == KRX {
		name = "Asia/Seoul"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Calendar) Market() Market           { return c.market }
func (c *Calendar) Location() *time.Location { return c.loc }

// DayAt converts an instant to the market's local date.
func (c *Calendar) DayAt(t time.Time) Day { return DayOf(t.In(c.loc)) }

// TradingDays returns the ordered day list. Callers must not mutate it.
func (c *Calendar) TradingDays() []Day { return c.days }

func (c *Calendar) IndexOf(d Day) (int, bool) {
	i, ok := c.index[d]
	return i, ok
}

// AddTradingDays resolves the date n trading days after d. When d itself is
// not a trading day (weekend or holiday entry), counting starts from the next
// trading day. The result clamps to the last known day so a deadline near the
// end of the span stays usable instead of vanishing.
func (c *Calendar) AddTradingDays(d Day, n int) (Day, bool) {
	if len(c.days) == 0 {
		return Day{}, false
	}
	i, ok := c.index[d]
	if !ok {
		i = c.nextIndex(d)
		if i < 0 {
			return c.days[len(c.days)-1], true
		}
	}
	i += n
	if i >= len(c.days) {
		i = len(c.days) - 1
	}
	if i < 0 {
		i = 0
	}
	return c.days[i], true
}

func (c *Calendar) nextIndex(d Day) int {
	for i, td := range c.days {
		if !td.Before(d) {
			return i
		}
	}
	return -1
}
