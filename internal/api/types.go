package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/glowtide/spa-booking-engine/internal/booking"
	"github.com/glowtide/spa-booking-engine/internal/schedule"
)

type ServiceResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
}

type BookingPageResponse struct {
	ProviderID          uuid.UUID         `json:"provider_id"`
	BusinessName        string            `json:"business_name"`
	Timezone            string            `json:"timezone"`
	ConfirmationMessage string            `json:"confirmation_message,omitempty"`
	RequireEmail        bool              `json:"require_email"`
	RequirePhone        bool              `json:"require_phone"`
	Services            []ServiceResponse `json:"services"`
}

type DaysResponse struct {
	Month string   `json:"month"`
	Days  []string `json:"days"`
}

type SlotResponse struct {
	StartAt         time.Time `json:"start_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Available       bool      `json:"available"`
}

type SlotsResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

type BookingResponse struct {
	ID              uuid.UUID  `json:"id"`
	ProviderID      uuid.UUID  `json:"provider_id"`
	ServiceID       uuid.UUID  `json:"service_id"`
	ClientName      string     `json:"client_name"`
	StartAt         time.Time  `json:"start_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

type SessionResponse struct {
	ID            uuid.UUID        `json:"id"`
	ProviderID    uuid.UUID        `json:"provider_id"`
	State         string           `json:"state"`
	Service       *ServiceResponse `json:"service,omitempty"`
	Slot          *SlotResponse    `json:"slot,omitempty"`
	BookingID     *uuid.UUID       `json:"booking_id,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
}

type CreateSessionRequest struct {
	ProviderID string `json:"provider_id"`
}

type ChooseServiceRequest struct {
	ServiceID string `json:"service_id"`
}

type ChooseSlotRequest struct {
	StartAt time.Time `json:"start_at"`
}

type ContactRequest struct {
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone"`
	Notes       string `json:"notes"`
}

func newServiceResponse(svc booking.Offering) ServiceResponse {
	return ServiceResponse{
		ID:              svc.ID,
		Name:            svc.Name,
		DurationMinutes: svc.DurationMinutes,
		PriceCents:      svc.PriceCents,
	}
}

func newSlotResponse(slot schedule.TimeSlot) SlotResponse {
	return SlotResponse{
		StartAt:         slot.Start,
		DurationMinutes: slot.DurationMinutes,
		Available:       slot.Available,
	}
}

func newBookingResponse(req *booking.Request) BookingResponse {
	return BookingResponse{
		ID:              req.ID,
		ProviderID:      req.ProviderID,
		ServiceID:       req.ServiceID,
		ClientName:      req.ClientName,
		StartAt:         req.StartAt,
		DurationMinutes: req.DurationMinutes,
		Status:          string(req.Status),
		ExpiresAt:       req.ExpiresAt,
	}
}

func newSessionResponse(snap booking.Session) SessionResponse {
	resp := SessionResponse{
		ID:            snap.ID,
		ProviderID:    snap.ProviderID,
		State:         string(snap.State),
		BookingID:     snap.BookingID,
		FailureReason: snap.FailureReason,
	}
	if snap.Service != nil {
		svc := newServiceResponse(*snap.Service)
		resp.Service = &svc
	}
	if snap.Slot != nil {
		slot := newSlotResponse(*snap.Slot)
		resp.Slot = &slot
	}
	return resp
}
