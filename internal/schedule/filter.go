package schedule

import "time"

// IsBookable reports whether date can be offered at all. Rules apply in
// order: no past dates, no dates beyond the advance window, weekday must
// be enabled, date must not be blocked. Pure; never fails.
func IsBookable(date time.Time, cfg Config, today time.Time) bool {
	loc := cfg.location()
	d := midnight(date, loc)
	t := midnight(today, loc)

	if d.Before(t) {
		return false
	}
	if d.After(t.AddDate(0, 0, cfg.AdvanceBookingDays)) {
		return false
	}

	hours, ok := cfg.hoursFor(d.Weekday())
	if !ok || !hours.Enabled {
		return false
	}

	if _, blocked := cfg.BlockedDates[DateKey(d, loc)]; blocked {
		return false
	}

	return true
}

// BookableDates returns every bookable calendar date of the given month,
// at midnight in the provider's timezone.
func BookableDates(year int, month time.Month, cfg Config, today time.Time) []time.Time {
	loc := cfg.location()

	var dates []time.Time
	for d := time.Date(year, month, 1, 0, 0, 0, 0, loc); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if IsBookable(d, cfg, today) {
			dates = append(dates, d)
		}
	}
	return dates
}

// midnight truncates t to the start of its calendar day in loc.
func midnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
