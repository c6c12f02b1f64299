package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glowtide/spa-booking-engine/internal/schedule"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusConfirmed RequestStatus = "confirmed"
	StatusCancelled RequestStatus = "cancelled"
	StatusExpired   RequestStatus = "expired"
)

// Provider is the practice whose schedule is offered for booking.
type Provider struct {
	ID                  uuid.UUID
	BusinessName        string
	Timezone            string // IANA name, anchors all calendar math
	BookingEnabled      bool
	ConfirmationMessage string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ScheduleConfig is the provider's stored booking rule set. BusinessHours
// is keyed by lowercase weekday name as persisted in jsonb.
type ScheduleConfig struct {
	ProviderID         uuid.UUID
	BufferMinutes      int
	AdvanceBookingDays int
	MinNoticeHours     int
	RequireEmail       bool
	RequirePhone       bool
	BusinessHours      map[string]schedule.DayHours
	BlockedDates       []time.Time
	UpdatedAt          time.Time
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Engine converts the stored config into the engine's immutable snapshot,
// resolving weekday keys and blocked dates into the provider's timezone.
func (c *ScheduleConfig) Engine(loc *time.Location) schedule.Config {
	hours := make(map[time.Weekday]schedule.DayHours, len(c.BusinessHours))
	for name, h := range c.BusinessHours {
		if wd, ok := weekdayNames[name]; ok {
			hours[wd] = h
		}
	}

	blocked := make(map[string]struct{}, len(c.BlockedDates))
	for _, d := range c.BlockedDates {
		blocked[schedule.DateKey(d, loc)] = struct{}{}
	}

	return schedule.Config{
		Location:           loc,
		BufferMinutes:      c.BufferMinutes,
		AdvanceBookingDays: c.AdvanceBookingDays,
		MinNoticeHours:     c.MinNoticeHours,
		RequireEmail:       c.RequireEmail,
		RequirePhone:       c.RequirePhone,
		BlockedDates:       blocked,
		Hours:              hours,
	}
}

// Offering is a bookable catalog entry (a service on the booking page).
type Offering struct {
	ID              uuid.UUID
	ProviderID      uuid.UUID
	Name            string
	DurationMinutes int
	PriceCents      int64
	Active          bool
	CreatedAt       time.Time
}

// Request is a booking request. Created once at commit, owned by the
// persistence layer thereafter.
type Request struct {
	ID              uuid.UUID
	ProviderID      uuid.UUID
	ServiceID       uuid.UUID
	ClientName      string
	ClientEmail     *string
	ClientPhone     *string
	Notes           string
	StartAt         time.Time
	DurationMinutes int
	Status          RequestStatus
	ExpiresAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *Request) Interval() schedule.Interval {
	return schedule.Interval{
		Start: r.StartAt,
		End:   r.StartAt.Add(time.Duration(r.DurationMinutes) * time.Minute),
	}
}

// BookingEvent is an append-only audit row.
type BookingEvent struct {
	ID        int64
	EventType string
	BookingID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

// Page is everything the public booking page needs to render.
type Page struct {
	Provider Provider
	Config   ScheduleConfig
	Services []Offering
}

// Location resolves the provider's IANA timezone.
func (p *Provider) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("provider %s has invalid timezone %q: %w", p.ID, p.Timezone, err)
	}
	return loc, nil
}
