// Package clock provides the exchange-local time source and the NSE trading
// window used to decide whether live data is worth asking for.
package clock

import "time"

// IST is India Standard Time, UTC+5:30 with no daylight saving.
var IST = time.FixedZone("IST", 5*60*60+30*60)

const (
	openHour, openMinute   = 9, 15
	closeHour, closeMinute = 15, 30
)

// Clock is the time collaborator injected into the pipeline, strategy and
// scheduler.
type Clock interface {
	Now() time.Time
	IsMarketOpen() bool
}

// Exchange reports wall-clock time in IST.
type Exchange struct{}

func New() Exchange { return Exchange{} }

func (Exchange) Now() time.Time { return time.Now().In(IST) }

func (e Exchange) IsMarketOpen() bool { return WithinSession(e.Now()) }

// WithinSession reports whether t falls inside 09:15-15:30 IST, both ends
// inclusive at minute granularity.
func WithinSession(t time.Time) bool {
	t = t.In(IST)
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= openHour*60+openMinute && minutes <= closeHour*60+closeMinute
}

// Fixed is a Clock frozen at a single instant.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At.In(IST) }

func (f Fixed) IsMarketOpen() bool { return WithinSession(f.At) }

// Today returns midnight of the current IST date, in UTC, which is how daily
// bars are keyed.
func Today(c Clock) time.Time {
	n := c.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}
