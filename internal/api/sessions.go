package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/glowtide/spa-booking-engine/internal/booking"
)

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
		return
	}

	// Refuse to start a workflow for a provider that cannot take bookings.
	if _, err := h.svc.Page(r.Context(), providerID); err != nil {
		h.handleBookingError(w, err)
		return
	}

	session := h.sessions.Create(providerID)
	writeJSON(w, http.StatusCreated, newSessionResponse(session.Snapshot()))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session.Snapshot()))
}

func (h *Handler) SessionChooseService(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	var req ChooseServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
		return
	}

	page, err := h.svc.Page(r.Context(), session.ProviderID)
	if err != nil {
		h.handleBookingError(w, err)
		return
	}

	var chosen *booking.Offering
	for i := range page.Services {
		if page.Services[i].ID == serviceID {
			chosen = &page.Services[i]
			break
		}
	}
	if chosen == nil {
		writeError(w, http.StatusNotFound, "service_not_found", "service does not belong to this provider")
		return
	}

	if err := session.ChooseService(*chosen); err != nil {
		h.handleSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session.Snapshot()))
}

func (h *Handler) SessionChooseSlot(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	var req ChooseSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.StartAt.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid_start_at", "start_at must be an RFC 3339 timestamp")
		return
	}

	snap := session.Snapshot()
	if snap.Service == nil {
		h.handleSessionError(w, &booking.WrongStateError{Op: "choose slot", State: snap.State})
		return
	}

	// Resolve the chosen time against a freshly generated grid so the
	// session never holds a slot the engine would not offer.
	slots, err := h.svc.Slots(r.Context(), session.ProviderID, snap.Service.ID, req.StartAt)
	if err != nil {
		h.handleBookingError(w, err)
		return
	}

	for _, slot := range slots {
		if slot.Start.Equal(req.StartAt) {
			if err := session.ChooseSlot(slot); err != nil {
				h.handleSessionError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, newSessionResponse(session.Snapshot()))
			return
		}
	}

	writeError(w, http.StatusConflict, "slot_unavailable", "requested time is not an offerable slot")
}

func (h *Handler) SessionEnterContact(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	page, err := h.svc.Page(r.Context(), session.ProviderID)
	if err != nil {
		h.handleBookingError(w, err)
		return
	}

	contact := booking.Contact{
		Name:  req.ClientName,
		Email: req.ClientEmail,
		Phone: req.ClientPhone,
		Notes: req.Notes,
	}
	if err := session.EnterContact(contact, page.Config.RequireEmail, page.Config.RequirePhone); err != nil {
		h.handleSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session.Snapshot()))
}

// SessionSubmit commits the assembled booking. On a conflict the session
// moves to failed and keeps the client's selections so one retry after
// re-picking a time is cheap.
func (h *Handler) SessionSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	snap := session.Snapshot()
	if snap.State != booking.StateSubmitting || snap.Service == nil || snap.Slot == nil {
		h.handleSessionError(w, &booking.WrongStateError{Op: "submit", State: snap.State})
		return
	}

	created, err := h.svc.Submit(r.Context(), booking.SubmitInput{
		ProviderID:  session.ProviderID,
		ServiceID:   snap.Service.ID,
		ClientName:  snap.Contact.Name,
		ClientEmail: snap.Contact.Email,
		ClientPhone: snap.Contact.Phone,
		Notes:       snap.Contact.Notes,
		StartAt:     snap.Slot.Start,
	})
	if err != nil {
		if failErr := session.Fail(userFacingReason(err)); failErr != nil {
			h.log.Error().Err(failErr).Str("session_id", session.ID.String()).Msg("could not mark session failed")
		}
		h.handleBookingError(w, err)
		return
	}

	if err := session.Complete(created.ID); err != nil {
		h.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("could not mark session confirmed")
	}

	writeJSON(w, http.StatusCreated, newBookingResponse(created))
}

// SessionBack steps the workflow backward; from failed it recovers to
// date/time selection.
func (h *Handler) SessionBack(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	var err error
	if session.CurrentState() == booking.StateFailed {
		err = session.Recover()
	} else {
		err = session.Back()
	}
	if err != nil {
		h.handleSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session.Snapshot()))
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*booking.Session, bool) {
	id, ok := pathUUID(w, r, "sessionID", "session_id")
	if !ok {
		return nil, false
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session_not_found", "booking session does not exist or has expired")
		return nil, false
	}
	return session, true
}

func (h *Handler) handleSessionError(w http.ResponseWriter, err error) {
	var (
		wsErr *booking.WrongStateError
		vErr  *booking.ValidationError
	)

	switch {
	case errors.Is(err, booking.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotNotAvailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.As(err, &wsErr):
		writeError(w, http.StatusConflict, "invalid_state", wsErr.Error())
	case errors.As(err, &vErr):
		writeFieldError(w, http.StatusUnprocessableEntity, "validation_failed", vErr.Reason, vErr.Field)
	default:
		h.log.Error().Err(err).Msg("unhandled session error")
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func userFacingReason(err error) string {
	switch {
	case errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrSlotUnavailable):
		return "requested time is no longer available"
	case errors.Is(err, booking.ErrSlotBeingBooked):
		return "slot is currently being booked, please retry"
	default:
		return "could not complete the booking"
	}
}
