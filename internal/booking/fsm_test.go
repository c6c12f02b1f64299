package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowtide/spa-booking-engine/internal/schedule"
)

func testOffering(minutes int) Offering {
	return Offering{
		ID:              uuid.New(),
		ProviderID:      uuid.New(),
		Name:            "Hydrafacial",
		DurationMinutes: minutes,
		PriceCents:      17500,
		Active:          true,
	}
}

func availableSlot(minutes int) schedule.TimeSlot {
	return schedule.TimeSlot{
		Start:           time.Date(2024, 1, 1, 9, 40, 0, 0, time.UTC),
		DurationMinutes: minutes,
		Available:       true,
	}
}

func TestFSMTransitions(t *testing.T) {
	fsm := NewFSM()

	allowed := []struct{ from, to State }{
		{StateSelectingService, StateSelectingDateTime},
		{StateSelectingDateTime, StateEnteringContactInfo},
		{StateSelectingDateTime, StateSelectingService},
		{StateSelectingDateTime, StateSelectingDateTime},
		{StateEnteringContactInfo, StateSubmitting},
		{StateEnteringContactInfo, StateSelectingDateTime},
		{StateSubmitting, StateConfirmed},
		{StateSubmitting, StateFailed},
		{StateFailed, StateSelectingDateTime},
	}
	for _, tr := range allowed {
		assert.True(t, fsm.CanTransition(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}

	denied := []struct{ from, to State }{
		{StateSelectingService, StateSubmitting},
		{StateSelectingService, StateEnteringContactInfo},
		{StateConfirmed, StateSelectingService},
		{StateSubmitting, StateSelectingService},
		{StateFailed, StateConfirmed},
	}
	for _, tr := range denied {
		assert.False(t, fsm.CanTransition(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}
}

func TestSessionHappyPath(t *testing.T) {
	svc := testOffering(30)
	session := NewSession(svc.ProviderID)
	require.Equal(t, StateSelectingService, session.CurrentState())

	require.NoError(t, session.ChooseService(svc))
	require.Equal(t, StateSelectingDateTime, session.CurrentState())

	require.NoError(t, session.ChooseSlot(availableSlot(30)))
	require.Equal(t, StateEnteringContactInfo, session.CurrentState())

	require.NoError(t, session.EnterContact(Contact{Name: "Ada Lovelace", Email: "ada@example.com"}, true, false))
	require.Equal(t, StateSubmitting, session.CurrentState())

	bookingID := uuid.New()
	require.NoError(t, session.Complete(bookingID))
	assert.Equal(t, StateConfirmed, session.CurrentState())
	assert.Equal(t, bookingID, *session.Snapshot().BookingID)
	assert.True(t, session.CurrentState().Terminal())
}

func TestSessionRejectsUnavailableSlot(t *testing.T) {
	svc := testOffering(30)
	session := NewSession(svc.ProviderID)
	require.NoError(t, session.ChooseService(svc))

	slot := availableSlot(30)
	slot.Available = false
	assert.ErrorIs(t, session.ChooseSlot(slot), ErrSlotNotAvailable)

	// Duration mismatch means the slot came from a stale grid.
	stale := availableSlot(60)
	assert.ErrorIs(t, session.ChooseSlot(stale), ErrSlotNotAvailable)
}

func TestSessionContactValidation(t *testing.T) {
	svc := testOffering(30)
	session := NewSession(svc.ProviderID)
	require.NoError(t, session.ChooseService(svc))
	require.NoError(t, session.ChooseSlot(availableSlot(30)))

	var vErr *ValidationError

	err := session.EnterContact(Contact{}, false, false)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "client_name", vErr.Field)

	err = session.EnterContact(Contact{Name: "Ada"}, true, false)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "client_email", vErr.Field)

	err = session.EnterContact(Contact{Name: "Ada", Email: "ada@example.com"}, true, true)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "client_phone", vErr.Field)

	// Still collecting contact info after the failures.
	assert.Equal(t, StateEnteringContactInfo, session.CurrentState())
}

func TestSessionServiceChangeClearsSlot(t *testing.T) {
	svc := testOffering(30)
	session := NewSession(svc.ProviderID)
	require.NoError(t, session.ChooseService(svc))
	require.NoError(t, session.ChooseSlot(availableSlot(30)))

	// Step back twice to service selection, then pick a different service.
	require.NoError(t, session.Back())
	require.Equal(t, StateSelectingDateTime, session.CurrentState())
	assert.NotNil(t, session.Snapshot().Slot, "slot survives backing into datetime selection")

	require.NoError(t, session.Back())
	require.Equal(t, StateSelectingService, session.CurrentState())
	assert.Nil(t, session.Snapshot().Slot, "slot does not survive leaving datetime selection")

	other := testOffering(60)
	require.NoError(t, session.ChooseService(other))
	assert.Nil(t, session.Snapshot().Slot)
	assert.Equal(t, other.ID, session.Snapshot().Service.ID)
}

func TestSessionSameServiceKeepsSlotOnReselect(t *testing.T) {
	svc := testOffering(30)
	session := NewSession(svc.ProviderID)
	require.NoError(t, session.ChooseService(svc))
	require.NoError(t, session.ChooseSlot(availableSlot(30)))
	require.NoError(t, session.Back())

	// Re-choosing the same service from the datetime step is a no-op for
	// the slot.
	require.NoError(t, session.ChooseService(svc))
	assert.NotNil(t, session.Snapshot().Slot)
	assert.Equal(t, StateSelectingDateTime, session.CurrentState())

	// Switching services from the same step drops the stale slot.
	require.NoError(t, session.ChooseService(testOffering(60)))
	assert.Nil(t, session.Snapshot().Slot)
	assert.Equal(t, StateSelectingDateTime, session.CurrentState())
}

func TestSessionFailAndRecover(t *testing.T) {
	svc := testOffering(30)
	session := NewSession(svc.ProviderID)
	require.NoError(t, session.ChooseService(svc))
	require.NoError(t, session.ChooseSlot(availableSlot(30)))
	require.NoError(t, session.EnterContact(Contact{Name: "Ada"}, false, false))

	require.NoError(t, session.Fail("requested time is no longer available"))
	assert.Equal(t, StateFailed, session.CurrentState())
	assert.Equal(t, "requested time is no longer available", session.Snapshot().FailureReason)

	require.NoError(t, session.Recover())
	snap := session.Snapshot()
	assert.Equal(t, StateSelectingDateTime, snap.State)
	assert.Nil(t, snap.Slot, "stale slot dropped on recovery")
	assert.Equal(t, "Ada", snap.Contact.Name, "contact info retained")
	assert.Equal(t, svc.ID, snap.Service.ID, "service retained")
}

func TestSessionWrongStateOperations(t *testing.T) {
	svc := testOffering(30)
	session := NewSession(svc.ProviderID)

	var wsErr *WrongStateError

	assert.ErrorAs(t, session.ChooseSlot(availableSlot(30)), &wsErr)
	assert.ErrorAs(t, session.EnterContact(Contact{Name: "Ada"}, false, false), &wsErr)
	assert.ErrorAs(t, session.Back(), &wsErr)
	assert.ErrorAs(t, session.Complete(uuid.New()), &wsErr)
	assert.ErrorAs(t, session.Recover(), &wsErr)

	require.NoError(t, session.ChooseService(svc))
	require.NoError(t, session.ChooseSlot(availableSlot(30)))
	require.NoError(t, session.EnterContact(Contact{Name: "Ada"}, false, false))
	require.NoError(t, session.Complete(uuid.New()))

	// Confirmed is terminal.
	assert.ErrorAs(t, session.ChooseService(svc), &wsErr)
	assert.ErrorAs(t, session.Back(), &wsErr)
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Hour)
	providerID := uuid.New()

	session := store.Create(providerID)
	got, err := store.Get(session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)

	_, err = store.Get(uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	store.Delete(session.ID)
	_, err = store.Get(session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreCleanup(t *testing.T) {
	store := NewSessionStore(time.Millisecond)
	session := store.Create(uuid.New())

	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, store.Cleanup())
	assert.Equal(t, 0, store.Cleanup())
}
