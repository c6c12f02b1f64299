package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/glowtide/spa-booking-engine/internal/booking"
	redisclient "github.com/glowtide/spa-booking-engine/internal/redis"
	"github.com/glowtide/spa-booking-engine/internal/schedule"
)

// BookingService is the slice of the booking service the HTTP layer uses.
type BookingService interface {
	Page(ctx context.Context, providerID uuid.UUID) (*booking.Page, error)
	Days(ctx context.Context, providerID uuid.UUID, year int, month time.Month) ([]time.Time, error)
	Slots(ctx context.Context, providerID, serviceID uuid.UUID, at time.Time) ([]schedule.TimeSlot, error)
	SlotsOn(ctx context.Context, providerID, serviceID uuid.UUID, year int, month time.Month, day int) ([]schedule.TimeSlot, error)
	Submit(ctx context.Context, in booking.SubmitInput) (*booking.Request, error)
	Confirm(ctx context.Context, id uuid.UUID) (*booking.Request, error)
	Cancel(ctx context.Context, id uuid.UUID) (*booking.Request, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*booking.Request, error)
}

type Handler struct {
	svc      BookingService
	sessions *booking.SessionStore
	log      zerolog.Logger
}

func NewHandler(svc BookingService, sessions *booking.SessionStore, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, sessions: sessions, log: log}
}

func (h *Handler) BookingPage(w http.ResponseWriter, r *http.Request) {
	providerID, ok := pathUUID(w, r, "providerID", "provider_id")
	if !ok {
		return
	}

	page, err := h.svc.Page(r.Context(), providerID)
	if err != nil {
		h.handleBookingError(w, err)
		return
	}

	services := make([]ServiceResponse, 0, len(page.Services))
	for _, svc := range page.Services {
		services = append(services, newServiceResponse(svc))
	}

	writeJSON(w, http.StatusOK, BookingPageResponse{
		ProviderID:          page.Provider.ID,
		BusinessName:        page.Provider.BusinessName,
		Timezone:            page.Provider.Timezone,
		ConfirmationMessage: page.Provider.ConfirmationMessage,
		RequireEmail:        page.Config.RequireEmail,
		RequirePhone:        page.Config.RequirePhone,
		Services:            services,
	})
}

func (h *Handler) Days(w http.ResponseWriter, r *http.Request) {
	providerID, ok := pathUUID(w, r, "providerID", "provider_id")
	if !ok {
		return
	}

	monthStr := r.URL.Query().Get("month")
	month, err := time.Parse("2006-01", monthStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_month", "month must look like 2024-01")
		return
	}

	days, err := h.svc.Days(r.Context(), providerID, month.Year(), month.Month())
	if err != nil {
		h.handleBookingError(w, err)
		return
	}

	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Format("2006-01-02"))
	}

	writeJSON(w, http.StatusOK, DaysResponse{Month: monthStr, Days: out})
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	providerID, ok := pathUUID(w, r, "providerID", "provider_id")
	if !ok {
		return
	}

	serviceID, err := uuid.Parse(r.URL.Query().Get("service_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
		return
	}

	dateStr := r.URL.Query().Get("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must look like 2024-01-15")
		return
	}

	// The query names a calendar day in the provider's timezone, not an
	// instant.
	slots, err := h.svc.SlotsOn(r.Context(), providerID, serviceID, date.Year(), date.Month(), date.Day())
	if err != nil {
		h.handleBookingError(w, err)
		return
	}

	out := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, newSlotResponse(slot))
	}

	writeJSON(w, http.StatusOK, SlotsResponse{Date: dateStr, Slots: out})
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "bookingID", "booking_id")
	if !ok {
		return
	}

	req, err := h.svc.GetRequest(r.Context(), id)
	if err != nil {
		h.handleBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newBookingResponse(req))
}

func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "bookingID", "booking_id")
	if !ok {
		return
	}

	req, err := h.svc.Confirm(r.Context(), id)
	if err != nil {
		h.handleBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newBookingResponse(req))
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "bookingID", "booking_id")
	if !ok {
		return
	}

	req, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		h.handleBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newBookingResponse(req))
}

func (h *Handler) handleBookingError(w http.ResponseWriter, err error) {
	var vErr *booking.ValidationError

	switch {
	case errors.Is(err, booking.ErrBookingDisabled):
		writeError(w, http.StatusNotFound, "booking_unavailable", "online booking is not available for this provider")
	case errors.Is(err, booking.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, booking.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, booking.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", "requested time was just booked by someone else")
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.As(err, &vErr):
		writeFieldError(w, http.StatusUnprocessableEntity, "validation_failed", vErr.Reason, vErr.Field)
	default:
		h.log.Error().Err(err).Msg("unhandled booking error")
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, param, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
