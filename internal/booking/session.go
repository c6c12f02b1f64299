package booking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glowtide/spa-booking-engine/internal/schedule"
)

var (
	ErrSessionNotFound  = errors.New("booking session not found")
	ErrSessionFinished  = errors.New("booking session already finished")
	ErrSlotNotAvailable = errors.New("chosen slot is not available")
)

// WrongStateError is returned when an operation does not apply to the
// session's current state.
type WrongStateError struct {
	Op    string
	State State
}

func (e *WrongStateError) Error() string {
	return fmt.Sprintf("cannot %s in state %q", e.Op, e.State)
}

// Contact is the client-entered contact block.
type Contact struct {
	Name  string
	Email string
	Phone string
	Notes string
}

// Session is one client's multi-step booking interaction. Selections
// survive backward navigation except the one invalidated by the change:
// picking a different service clears the chosen slot.
type Session struct {
	ID         uuid.UUID
	ProviderID uuid.UUID

	State         State
	Service       *Offering
	Slot          *schedule.TimeSlot
	Contact       Contact
	BookingID     *uuid.UUID
	FailureReason string

	StartedAt time.Time
	UpdatedAt time.Time

	fsm *FSM
	mu  sync.Mutex
}

func NewSession(providerID uuid.UUID) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New(),
		ProviderID: providerID,
		State:      StateSelectingService,
		StartedAt:  now,
		UpdatedAt:  now,
		fsm:        NewFSM(),
	}
}

// ChooseService records the chosen service and moves to date/time
// selection. Re-choosing from the datetime step is allowed and clears any
// previously chosen slot.
func (s *Session) ChooseService(svc Offering) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State {
	case StateSelectingService:
		// first pick
	case StateSelectingDateTime:
		// service change while browsing times
	default:
		return &WrongStateError{Op: "choose service", State: s.State}
	}

	if s.Service == nil || s.Service.ID != svc.ID {
		s.Slot = nil
	}
	s.Service = &svc
	s.transition(StateSelectingDateTime)
	return nil
}

// ChooseSlot records a slot the client picked from the current grid. The
// caller must pass a slot from a fresh GenerateSlots run; an unavailable
// slot is rejected here and again at commit time.
func (s *Session) ChooseSlot(slot schedule.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateSelectingDateTime {
		return &WrongStateError{Op: "choose slot", State: s.State}
	}
	if s.Service == nil {
		return &WrongStateError{Op: "choose slot", State: s.State}
	}
	if !slot.Available {
		return ErrSlotNotAvailable
	}
	if slot.DurationMinutes != s.Service.DurationMinutes {
		return ErrSlotNotAvailable
	}

	s.Slot = &slot
	s.transition(StateEnteringContactInfo)
	return nil
}

// EnterContact validates the contact block against the provider's
// requirements and moves to Submitting.
func (s *Session) EnterContact(c Contact, requireEmail, requirePhone bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateEnteringContactInfo {
		return &WrongStateError{Op: "enter contact info", State: s.State}
	}
	if c.Name == "" {
		return &ValidationError{Field: "client_name", Reason: "required"}
	}
	if requireEmail && c.Email == "" {
		return &ValidationError{Field: "client_email", Reason: "required"}
	}
	if requirePhone && c.Phone == "" {
		return &ValidationError{Field: "client_phone", Reason: "required"}
	}

	s.Contact = c
	s.transition(StateSubmitting)
	return nil
}

// Back steps to the immediate predecessor state. Prior selections are
// retained except the one the backward move invalidates.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := predecessor(s.State)
	if !ok {
		return &WrongStateError{Op: "go back", State: s.State}
	}

	if prev == StateSelectingService {
		// Leaving datetime selection: the slot belongs to the old
		// service/date context.
		s.Slot = nil
	}
	s.transition(prev)
	return nil
}

// Complete marks the session confirmed after a successful commit.
func (s *Session) Complete(bookingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateSubmitting {
		return &WrongStateError{Op: "complete", State: s.State}
	}
	s.BookingID = &bookingID
	s.transition(StateConfirmed)
	return nil
}

// Fail marks the submission failed with a user-facing reason.
func (s *Session) Fail(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateSubmitting {
		return &WrongStateError{Op: "fail", State: s.State}
	}
	s.FailureReason = reason
	s.transition(StateFailed)
	return nil
}

// Recover returns a failed session to date/time selection so the client
// can pick another slot. The stale slot is dropped; service and contact
// info are retained.
func (s *Session) Recover() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != StateFailed {
		return &WrongStateError{Op: "recover", State: s.State}
	}
	s.Slot = nil
	s.FailureReason = ""
	s.transition(StateSelectingDateTime)
	return nil
}

// Snapshot returns a copy of the session safe to render.
func (s *Session) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Session{
		ID:            s.ID,
		ProviderID:    s.ProviderID,
		State:         s.State,
		Contact:       s.Contact,
		FailureReason: s.FailureReason,
		StartedAt:     s.StartedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Service != nil {
		svc := *s.Service
		snap.Service = &svc
	}
	if s.Slot != nil {
		slot := *s.Slot
		snap.Slot = &slot
	}
	if s.BookingID != nil {
		id := *s.BookingID
		snap.BookingID = &id
	}
	return snap
}

func (s *Session) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func (s *Session) expired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.UpdatedAt) > timeout
}

// transition assumes s.mu is held and the move was validated by the
// calling operation; the fsm check is a backstop.
func (s *Session) transition(to State) {
	if !s.fsm.CanTransition(s.State, to) {
		panic(fmt.Sprintf("booking: illegal transition %s -> %s", s.State, to))
	}
	s.State = to
	s.UpdatedAt = time.Now()
}

// SessionStore keeps in-flight booking sessions with TTL cleanup.
type SessionStore struct {
	sessions map[uuid.UUID]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
		timeout:  timeout,
	}
}

// Create starts a new session for a provider.
func (ss *SessionStore) Create(providerID uuid.UUID) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session := NewSession(providerID)
	ss.sessions[session.ID] = session
	return session
}

// Get returns a live session or ErrSessionNotFound.
func (ss *SessionStore) Get(id uuid.UUID) (*Session, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	session, ok := ss.sessions[id]
	if !ok || session.expired(ss.timeout) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session.
func (ss *SessionStore) Delete(id uuid.UUID) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, id)
}

// Cleanup removes expired sessions and reports how many were dropped.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for id, session := range ss.sessions {
		if session.expired(ss.timeout) {
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed
}
