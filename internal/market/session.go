package market

import "time"

// Session labels a slice of the US trading day as seen from the observer's
// timezone. The bot trades US-listed funds but its schedule is anchored to
// Korean local time, so boundaries shift by an hour with US daylight saving.
type Session string

const (
	Daytime     Session = "DAYTIME"
	Premarket   Session = "PREMARKET"
	Regular     Session = "REGULAR"
	Aftermarket Session = "AFTERMARKET"
	Extended    Session = "EXTENDED"
	Closed      Session = "CLOSED"
)

// span is a half-open minute range [from, to) measured from observer midnight.
type span struct {
	from, to int
	s        Session
}

// Summer (US DST) schedule in observer-local minutes. The regular US session
// wraps midnight, so it appears as two spans.
var summerSpans = []span{
	{540, 1020, Daytime},      // 09:00-17:00
	{1020, 1350, Premarket},   // 17:00-22:30
	{1350, 1440, Regular},     // 22:30-24:00
	{0, 300, Regular},         // 00:00-05:00
	{300, 420, Aftermarket},   // 05:00-07:00
	{420, 540, Extended},      // 07:00-09:00
}

// Winter schedule: every boundary slides one hour later.
var winterSpans = []span{
	{600, 1080, Daytime},      // 10:00-18:00
	{1080, 1410, Premarket},   // 18:00-23:30
	{1410, 1440, Regular},     // 23:30-24:00
	{0, 360, Regular},         // 00:00-06:00
	{360, 480, Aftermarket},   // 06:00-08:00
	{480, 600, Extended},      // 08:00-10:00
}

// Classifier maps instants to sessions for one observer location.
type Classifier struct {
	observer *time.Location
	exchange *time.Location
}

// NewClassifier builds a classifier for the given observer timezone name.
// DST is always judged by the US exchange clock, not the observer's.
func NewClassifier(observer string) (*Classifier, error) {
	obs, err := time.LoadLocation(observer)
	if err != nil {
		return nil, err
	}
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, err
	}
	return &Classifier{observer: obs, exchange: ny}, nil
}

// Classify returns the session containing t.
func (c *Classifier) Classify(t time.Time) Session {
	local := t.In(c.observer)
	minute := local.Hour()*60 + local.Minute()

	spans := winterSpans
	if t.In(c.exchange).IsDST() {
		spans = summerSpans
	}
	for _, sp := range spans {
		if minute >= sp.from && minute < sp.to {
			return sp.s
		}
	}
	return Closed
}

// Contains reports whether s is one of the allowed sessions.
func Contains(allowed []Session, s Session) bool {
	for _, a := range allowed {
		if a == s {
			return true
		}
	}
	return false
}

// ParseSession resolves a config string to a Session.
func ParseSession(s string) (Session, bool) {
	switch Session(s) {
	case Daytime, Premarket, Regular, Aftermarket, Extended, Closed:
		return Session(s), true
	}
	return Closed, false
}
