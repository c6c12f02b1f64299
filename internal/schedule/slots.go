package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GenerateSlots produces the candidate slot grid for a date and service.
// The walk starts at the day's opening time and advances by service
// duration plus buffer; a slot is emitted only while it fits entirely
// before closing. Availability accounts for the minimum notice window and
// for overlap with existing appointments. The result is recomputed fresh
// on every call and is fully determined by the inputs; now is injected,
// the wall clock is never read here.
func GenerateSlots(date time.Time, svc Service, cfg Config, existing []Appointment, now time.Time) ([]TimeSlot, error) {
	if svc.DurationMinutes <= 0 {
		return nil, fmt.Errorf("service duration must be positive, got %d", svc.DurationMinutes)
	}

	if !IsBookable(date, cfg, now) {
		return nil, nil
	}

	loc := cfg.location()
	hours, _ := cfg.hoursFor(date.In(loc).Weekday())

	dayStart, err := anchorClock(date, hours.Start, loc)
	if err != nil {
		return nil, fmt.Errorf("parse day start: %w", err)
	}
	dayEnd, err := anchorClock(date, hours.End, loc)
	if err != nil {
		return nil, fmt.Errorf("parse day end: %w", err)
	}
	if !dayStart.Before(dayEnd) {
		return nil, fmt.Errorf("business hours start %q not before end %q", hours.Start, hours.End)
	}

	minBookable := now.Add(time.Duration(cfg.MinNoticeHours) * time.Hour)

	// Only appointments touching this day's window can conflict.
	day := Interval{Start: dayStart, End: dayEnd}
	var busy []Interval
	for _, appt := range existing {
		if iv := appt.Interval(); Overlaps(iv, day) {
			busy = append(busy, iv)
		}
	}

	duration := time.Duration(svc.DurationMinutes) * time.Minute
	step := duration + time.Duration(cfg.BufferMinutes)*time.Minute

	var slots []TimeSlot
	for cursor := dayStart; !cursor.Add(duration).After(dayEnd); cursor = cursor.Add(step) {
		slot := Interval{Start: cursor, End: cursor.Add(duration)}

		tooSoon := cursor.Before(minBookable)
		conflicted := false
		for _, iv := range busy {
			if Overlaps(slot, iv) {
				conflicted = true
				break
			}
		}

		slots = append(slots, TimeSlot{
			Start:           cursor,
			DurationMinutes: svc.DurationMinutes,
			Available:       !tooSoon && !conflicted,
		})
	}

	return slots, nil
}

// anchorClock resolves an "HH:MM" string to an instant on date's calendar
// day in loc.
func anchorClock(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time %q, want HH:MM", clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour in %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in %q", clock)
	}

	d := date.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc), nil
}
