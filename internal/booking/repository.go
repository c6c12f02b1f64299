package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrConfigNotFound   = errors.New("schedule config not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrRequestNotFound  = errors.New("booking request not found")

	// ErrSlotTaken means another request already holds an overlapping
	// interval. The repository is the final arbiter here; slot grids the
	// client saw are advisory only.
	ErrSlotTaken = errors.New("requested time is no longer available")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetScheduleConfig(ctx context.Context, providerID uuid.UUID) (*ScheduleConfig, error)

	GetService(ctx context.Context, providerID, serviceID uuid.UUID) (*Offering, error)
	ListActiveServices(ctx context.Context, providerID uuid.UUID) ([]Offering, error)

	// ListActiveRequestsInRange returns pending and confirmed requests
	// whose interval intersects [from, to). Cancelled and expired rows
	// never participate in conflict checks.
	ListActiveRequestsInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Request, error)

	// CreateRequestIfFree inserts req inside a transaction that first
	// re-checks for overlapping active requests. Returns ErrSlotTaken if
	// the interval was claimed between slot generation and commit.
	CreateRequestIfFree(ctx context.Context, req Request) (*Request, error)

	GetRequest(ctx context.Context, id uuid.UUID) (*Request, error)
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, from, to RequestStatus) (*Request, error)

	// Expiry worker
	FindExpiredPending(ctx context.Context, now time.Time) ([]Request, error)

	// Event logging
	InsertEvent(ctx context.Context, ev BookingEvent) error
}
