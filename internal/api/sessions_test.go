package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowtide/spa-booking-engine/internal/booking"
)

func startSession(t *testing.T, router http.Handler) SessionResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/sessions", CreateSessionRequest{
		ProviderID: testProviderID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	session := decode[SessionResponse](t, rec)
	require.Equal(t, string(booking.StateSelectingService), session.State)
	return session
}

func advanceToSubmitting(t *testing.T, router http.Handler, sessionID uuid.UUID) {
	t.Helper()
	base := "/sessions/" + sessionID.String()

	rec := doJSON(t, router, http.MethodPost, base+"/service", ChooseServiceRequest{ServiceID: testServiceID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(booking.StateSelectingDateTime), decode[SessionResponse](t, rec).State)

	rec = doJSON(t, router, http.MethodPost, base+"/slot", ChooseSlotRequest{StartAt: testSlotStart})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(booking.StateEnteringContactInfo), decode[SessionResponse](t, rec).State)

	rec = doJSON(t, router, http.MethodPost, base+"/contact", ContactRequest{ClientName: "Ada Lovelace"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(booking.StateSubmitting), decode[SessionResponse](t, rec).State)
}

func TestSessionWorkflowHappyPath(t *testing.T) {
	bookingID := uuid.New()
	svc := &stubService{
		page:  fixturePage(),
		slots: fixtureSlots(),
		submitFn: func(in booking.SubmitInput) (*booking.Request, error) {
			assert.Equal(t, testProviderID, in.ProviderID)
			assert.Equal(t, testServiceID, in.ServiceID)
			assert.Equal(t, "Ada Lovelace", in.ClientName)
			assert.True(t, in.StartAt.Equal(testSlotStart))
			return &booking.Request{
				ID:              bookingID,
				ProviderID:      in.ProviderID,
				ServiceID:       in.ServiceID,
				ClientName:      in.ClientName,
				StartAt:         in.StartAt,
				DurationMinutes: 30,
				Status:          booking.StatusPending,
			}, nil
		},
	}
	router := newTestRouter(svc)

	session := startSession(t, router)
	advanceToSubmitting(t, router, session.ID)

	rec := doJSON(t, router, http.MethodPost, "/sessions/"+session.ID.String()+"/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode[BookingResponse](t, rec)
	assert.Equal(t, bookingID, created.ID)
	assert.Equal(t, string(booking.StatusPending), created.Status)

	rec = doJSON(t, router, http.MethodGet, "/sessions/"+session.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	final := decode[SessionResponse](t, rec)
	assert.Equal(t, string(booking.StateConfirmed), final.State)
	require.NotNil(t, final.BookingID)
	assert.Equal(t, bookingID, *final.BookingID)
}

func TestSessionSubmitConflictFailsAndRecovers(t *testing.T) {
	svc := &stubService{
		page:  fixturePage(),
		slots: fixtureSlots(),
		submitFn: func(in booking.SubmitInput) (*booking.Request, error) {
			return nil, booking.ErrSlotTaken
		},
	}
	router := newTestRouter(svc)

	session := startSession(t, router)
	advanceToSubmitting(t, router, session.ID)
	base := "/sessions/" + session.ID.String()

	rec := doJSON(t, router, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_taken", decode[ErrorResponse](t, rec).Error)

	rec = doJSON(t, router, http.MethodGet, base, nil)
	failed := decode[SessionResponse](t, rec)
	assert.Equal(t, string(booking.StateFailed), failed.State)
	assert.Equal(t, "requested time is no longer available", failed.FailureReason)

	// Back from failed recovers to time selection with the slot dropped.
	rec = doJSON(t, router, http.MethodPost, base+"/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recovered := decode[SessionResponse](t, rec)
	assert.Equal(t, string(booking.StateSelectingDateTime), recovered.State)
	assert.Nil(t, recovered.Slot)
	require.NotNil(t, recovered.Service)
	assert.Equal(t, testServiceID, recovered.Service.ID)
}

func TestSessionChooseSlotRejectsUnavailable(t *testing.T) {
	slots := fixtureSlots()
	slots[1].Available = false
	svc := &stubService{page: fixturePage(), slots: slots}
	router := newTestRouter(svc)

	session := startSession(t, router)
	base := "/sessions/" + session.ID.String()

	rec := doJSON(t, router, http.MethodPost, base+"/service", ChooseServiceRequest{ServiceID: testServiceID.String()})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/slot", ChooseSlotRequest{StartAt: testSlotStart})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_unavailable", decode[ErrorResponse](t, rec).Error)
}

func TestSessionChooseSlotNotOnGrid(t *testing.T) {
	svc := &stubService{page: fixturePage(), slots: fixtureSlots()}
	router := newTestRouter(svc)

	session := startSession(t, router)
	base := "/sessions/" + session.ID.String()

	rec := doJSON(t, router, http.MethodPost, base+"/service", ChooseServiceRequest{ServiceID: testServiceID.String()})
	require.Equal(t, http.StatusOK, rec.Code)

	offGrid := time.Date(2024, 1, 1, 9, 50, 0, 0, time.UTC)
	rec = doJSON(t, router, http.MethodPost, base+"/slot", ChooseSlotRequest{StartAt: offGrid})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_unavailable", decode[ErrorResponse](t, rec).Error)
}

func TestSessionContactValidationOverHTTP(t *testing.T) {
	page := fixturePage()
	page.Config.RequireEmail = true
	svc := &stubService{page: page, slots: fixtureSlots()}
	router := newTestRouter(svc)

	session := startSession(t, router)
	base := "/sessions/" + session.ID.String()

	rec := doJSON(t, router, http.MethodPost, base+"/service", ChooseServiceRequest{ServiceID: testServiceID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodPost, base+"/slot", ChooseSlotRequest{StartAt: testSlotStart})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/contact", ContactRequest{ClientName: "Ada"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation_failed", errResp.Error)
	assert.Equal(t, "client_email", errResp.Field)
}

func TestSessionWrongServiceRejected(t *testing.T) {
	svc := &stubService{page: fixturePage(), slots: fixtureSlots()}
	router := newTestRouter(svc)

	session := startSession(t, router)
	rec := doJSON(t, router, http.MethodPost, "/sessions/"+session.ID.String()+"/service",
		ChooseServiceRequest{ServiceID: uuid.NewString()})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "service_not_found", decode[ErrorResponse](t, rec).Error)
}

func TestSessionSubmitOutOfOrder(t *testing.T) {
	svc := &stubService{page: fixturePage(), slots: fixtureSlots()}
	router := newTestRouter(svc)

	session := startSession(t, router)
	rec := doJSON(t, router, http.MethodPost, "/sessions/"+session.ID.String()+"/submit", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", decode[ErrorResponse](t, rec).Error)
}

func TestSessionNotFound(t *testing.T) {
	router := newTestRouter(&stubService{page: fixturePage()})

	rec := doJSON(t, router, http.MethodGet, "/sessions/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", decode[ErrorResponse](t, rec).Error)
}

func TestCreateSessionRequiresBookableProvider(t *testing.T) {
	router := newTestRouter(&stubService{pageErr: booking.ErrBookingDisabled})

	rec := doJSON(t, router, http.MethodPost, "/sessions", CreateSessionRequest{
		ProviderID: testProviderID.String(),
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "booking_unavailable", decode[ErrorResponse](t, rec).Error)
}
