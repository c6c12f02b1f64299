package schedule

import (
	"time"
)

// DayHours is the booking window for one weekday, as "HH:MM" strings
// anchored to the provider's timezone.
type DayHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Config is an immutable snapshot of a provider's booking rules. All
// calendar math runs in Location; instants are converted on the way in.
type Config struct {
	Location           *time.Location
	BufferMinutes      int
	AdvanceBookingDays int
	MinNoticeHours     int
	RequireEmail       bool
	RequirePhone       bool
	BlockedDates       map[string]struct{} // keys in "2006-01-02" form
	Hours              map[time.Weekday]DayHours
}

// Service carries the only service attributes the engine needs.
type Service struct {
	Name            string
	DurationMinutes int
}

// Appointment is an already-booked interval that competes with candidate
// slots. Callers pass only non-cancelled appointments.
type Appointment struct {
	Start           time.Time
	DurationMinutes int
}

func (a Appointment) Interval() Interval {
	return Interval{
		Start: a.Start,
		End:   a.Start.Add(time.Duration(a.DurationMinutes) * time.Minute),
	}
}

// TimeSlot is a candidate appointment start. Derived, never persisted;
// discarded whenever the date, service or appointment set changes.
type TimeSlot struct {
	Start           time.Time
	DurationMinutes int
	Available       bool
}

func (s TimeSlot) Interval() Interval {
	return Interval{
		Start: s.Start,
		End:   s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute),
	}
}

// DateKey formats t as a calendar date in loc, matching BlockedDates keys.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

func (c Config) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.UTC
}

func (c Config) hoursFor(d time.Weekday) (DayHours, bool) {
	h, ok := c.Hours[d]
	return h, ok
}
