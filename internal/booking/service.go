package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/glowtide/spa-booking-engine/internal/notify"
	"github.com/glowtide/spa-booking-engine/internal/observability/metrics"
	redisclient "github.com/glowtide/spa-booking-engine/internal/redis"
	"github.com/glowtide/spa-booking-engine/internal/schedule"
)

const (
	EventBookingRequested = "BOOKING_REQUESTED"
	EventBookingConfirmed = "BOOKING_CONFIRMED"
	EventBookingCancelled = "BOOKING_CANCELLED"
	EventBookingExpired   = "BOOKING_EXPIRED"
)

var (
	ErrBookingDisabled         = errors.New("booking is not available for this provider")
	ErrSlotUnavailable         = errors.New("requested time is not an offerable slot")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// ValidationError reports a missing or malformed contact field. These are
// expected to be caught by the workflow before submission; the service
// re-checks because it is the authority.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SubmitInput is a fully assembled booking submission.
type SubmitInput struct {
	ProviderID  uuid.UUID
	ServiceID   uuid.UUID
	ClientName  string
	ClientEmail string
	ClientPhone string
	Notes       string
	StartAt     time.Time
}

type Service struct {
	repo       Repository
	locker     redisclient.Locker
	dispatcher *notify.Dispatcher
	bookingTTL time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, dispatcher *notify.Dispatcher, bookingTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		locker:     locker,
		dispatcher: dispatcher,
		bookingTTL: bookingTTL,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Page loads everything the public booking page renders. A missing or
// disabled provider surfaces as ErrBookingDisabled so the page can show
// "not available" without leaking which case it was.
func (s *Service) Page(ctx context.Context, providerID uuid.UUID) (*Page, error) {
	provider, err := s.repo.GetProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, ErrBookingDisabled
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}
	if !provider.BookingEnabled {
		return nil, ErrBookingDisabled
	}

	cfg, err := s.repo.GetScheduleConfig(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return nil, ErrBookingDisabled
		}
		return nil, fmt.Errorf("load schedule config: %w", err)
	}

	services, err := s.repo.ListActiveServices(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	return &Page{Provider: *provider, Config: *cfg, Services: services}, nil
}

// Days returns the bookable calendar dates of one month in the provider's
// timezone.
func (s *Service) Days(ctx context.Context, providerID uuid.UUID, year int, month time.Month) ([]time.Time, error) {
	page, err := s.Page(ctx, providerID)
	if err != nil {
		return nil, err
	}

	loc, err := page.Provider.Location()
	if err != nil {
		return nil, err
	}

	return schedule.BookableDates(year, month, page.Config.Engine(loc), s.now()), nil
}

// Slots computes the candidate grid for the provider-timezone calendar
// day containing the instant at.
func (s *Service) Slots(ctx context.Context, providerID, serviceID uuid.UUID, at time.Time) ([]schedule.TimeSlot, error) {
	page, svc, loc, err := s.slotContext(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}

	d := at.In(loc)
	return s.slotGrid(ctx, page, svc, loc, d.Year(), d.Month(), d.Day())
}

// SlotsOn computes the candidate grid for a calendar date given as
// year/month/day in the provider's timezone. This is the entry point for
// callers that hold a date string rather than an instant.
func (s *Service) SlotsOn(ctx context.Context, providerID, serviceID uuid.UUID, year int, month time.Month, day int) ([]schedule.TimeSlot, error) {
	page, svc, loc, err := s.slotContext(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}

	return s.slotGrid(ctx, page, svc, loc, year, month, day)
}

func (s *Service) slotContext(ctx context.Context, providerID, serviceID uuid.UUID) (*Page, *Offering, *time.Location, error) {
	page, err := s.Page(ctx, providerID)
	if err != nil {
		return nil, nil, nil, err
	}

	svc, err := s.repo.GetService(ctx, providerID, serviceID)
	if err != nil {
		return nil, nil, nil, err
	}

	loc, err := page.Provider.Location()
	if err != nil {
		return nil, nil, nil, err
	}

	return page, svc, loc, nil
}

// slotGrid generates the grid for one provider-timezone calendar day.
// Existing appointments are fetched fresh on every call; nothing is
// cached across dates.
func (s *Service) slotGrid(ctx context.Context, page *Page, svc *Offering, loc *time.Location, year int, month time.Month, day int) ([]schedule.TimeSlot, error) {
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, loc)

	existing, err := s.activeAppointments(ctx, page.Provider.ID, dayStart, loc)
	if err != nil {
		return nil, err
	}

	slots, err := schedule.GenerateSlots(dayStart, schedule.Service{
		Name:            svc.Name,
		DurationMinutes: svc.DurationMinutes,
	}, page.Config.Engine(loc), existing, s.now())
	if err != nil {
		return nil, fmt.Errorf("generate slots: %w", err)
	}

	metrics.AddSlotsGenerated(len(slots))
	return slots, nil
}

// Submit commits a booking request. The requested start is revalidated
// against a freshly generated grid, then the insert runs under the
// per-(provider, start) lock with a transactional overlap re-check. Two
// racing submissions for the same interval end with exactly one pending
// request; the loser gets ErrSlotTaken or ErrSlotBeingBooked.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	page, err := s.Page(ctx, in.ProviderID)
	if err != nil {
		return nil, err
	}

	svc, err := s.repo.GetService(ctx, in.ProviderID, in.ServiceID)
	if err != nil {
		return nil, err
	}

	if err := validateContact(in, page.Config); err != nil {
		return nil, err
	}

	loc, err := page.Provider.Location()
	if err != nil {
		return nil, err
	}

	// Never trust the client's slot: regenerate and require a matching
	// available candidate.
	offered, err := s.offeredSlot(ctx, page, svc, in.StartAt, loc)
	if err != nil {
		return nil, err
	}
	if !offered {
		return nil, ErrSlotUnavailable
	}

	req := Request{
		ProviderID:      in.ProviderID,
		ServiceID:       svc.ID,
		ClientName:      in.ClientName,
		ClientEmail:     optional(in.ClientEmail),
		ClientPhone:     optional(in.ClientPhone),
		Notes:           in.Notes,
		StartAt:         in.StartAt.UTC(),
		DurationMinutes: svc.DurationMinutes,
		Status:          StatusPending,
	}
	if s.bookingTTL > 0 {
		expires := s.now().Add(s.bookingTTL)
		req.ExpiresAt = &expires
	}

	var created *Request
	err = s.locker.WithBookingLock(ctx, in.ProviderID, in.StartAt, func(lockCtx context.Context) error {
		var err error
		created, err = s.repo.CreateRequestIfFree(lockCtx, req)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			metrics.IncCommitConflict()
			return nil, ErrSlotBeingBooked
		case errors.Is(err, ErrSlotTaken):
			metrics.IncCommitConflict()
			metrics.IncBookingCreated("conflict")
			return nil, err
		default:
			metrics.IncBookingCreated("error")
			return nil, err
		}
	}

	metrics.IncBookingCreated("ok")
	s.logEvent(ctx, created.ID, EventBookingRequested, map[string]any{
		"provider_id": in.ProviderID.String(),
		"service_id":  svc.ID.String(),
		"start_at":    created.StartAt,
	})
	s.log.Info().
		Str("booking_id", created.ID.String()).
		Str("provider_id", in.ProviderID.String()).
		Time("start_at", created.StartAt).
		Msg("booking request created")

	// Confirmation is fire-and-forget; its outcome never affects the
	// committed booking.
	s.dispatcher.Dispatch(notify.Confirmation{
		BusinessName: page.Provider.BusinessName,
		ClientName:   in.ClientName,
		ClientEmail:  in.ClientEmail,
		ServiceName:  svc.Name,
		StartsAt:     created.StartAt.In(loc).Format("Monday, January 2 at 3:04 PM"),
		Message:      page.Provider.ConfirmationMessage,
	})

	return created, nil
}

// Confirm moves a pending request to confirmed (provider action).
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Request, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking request: %w", err)
	}

	if req.Status != StatusPending {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateRequestStatus(ctx, id, StatusPending, StatusConfirmed)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("confirm booking: %w", err)
	}

	metrics.IncStatusTransition(string(StatusConfirmed))
	s.logEvent(ctx, updated.ID, EventBookingConfirmed, map[string]any{})
	return updated, nil
}

// Cancel cancels a pending or confirmed request, releasing its interval.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Request, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking request: %w", err)
	}

	if req.Status != StatusPending && req.Status != StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateRequestStatus(ctx, id, req.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	metrics.IncStatusTransition(string(StatusCancelled))
	s.logEvent(ctx, updated.ID, EventBookingCancelled, map[string]any{})
	return updated, nil
}

// ExpirePending is called by the worker periodically. A pending request a
// provider never confirmed releases its interval after the booking TTL.
func (s *Service) ExpirePending(ctx context.Context) error {
	candidates, err := s.repo.FindExpiredPending(ctx, s.now())
	if err != nil {
		return fmt.Errorf("find expired pending requests: %w", err)
	}

	for _, req := range candidates {
		_, err := s.repo.UpdateRequestStatus(ctx, req.ID, StatusPending, StatusExpired)
		if err != nil && !errors.Is(err, ErrRequestNotFound) {
			s.log.Error().Err(err).Str("booking_id", req.ID.String()).Msg("failed to expire booking request")
			continue
		}
		metrics.IncStatusTransition(string(StatusExpired))
		s.logEvent(ctx, req.ID, EventBookingExpired, map[string]any{"reason": "worker"})
	}

	return nil
}

// GetRequest retrieves a booking request by ID.
func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.repo.GetRequest(ctx, id)
}

func (s *Service) activeAppointments(ctx context.Context, providerID uuid.UUID, date time.Time, loc *time.Location) ([]schedule.Appointment, error) {
	d := date.In(loc)
	dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	requests, err := s.repo.ListActiveRequestsInRange(ctx, providerID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("list existing appointments: %w", err)
	}

	appts := make([]schedule.Appointment, 0, len(requests))
	for _, r := range requests {
		appts = append(appts, schedule.Appointment{
			Start:           r.StartAt,
			DurationMinutes: r.DurationMinutes,
		})
	}
	return appts, nil
}

func (s *Service) offeredSlot(ctx context.Context, page *Page, svc *Offering, startAt time.Time, loc *time.Location) (bool, error) {
	existing, err := s.activeAppointments(ctx, page.Provider.ID, startAt, loc)
	if err != nil {
		return false, err
	}

	slots, err := schedule.GenerateSlots(startAt, schedule.Service{
		Name:            svc.Name,
		DurationMinutes: svc.DurationMinutes,
	}, page.Config.Engine(loc), existing, s.now())
	if err != nil {
		return false, fmt.Errorf("generate slots: %w", err)
	}

	for _, slot := range slots {
		if slot.Available && slot.Start.Equal(startAt) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) logEvent(ctx context.Context, bookingID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	id := bookingID
	ev := BookingEvent{
		EventType: eventType,
		BookingID: &id,
		Payload:   data,
		CreatedAt: s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event", eventType).Str("booking_id", bookingID.String()).Msg("failed to insert booking event")
	}
}

func validateContact(in SubmitInput, cfg ScheduleConfig) error {
	if in.ClientName == "" {
		return &ValidationError{Field: "client_name", Reason: "required"}
	}
	if cfg.RequireEmail && in.ClientEmail == "" {
		return &ValidationError{Field: "client_email", Reason: "required"}
	}
	if cfg.RequirePhone && in.ClientPhone == "" {
		return &ValidationError{Field: "client_phone", Reason: "required"}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
