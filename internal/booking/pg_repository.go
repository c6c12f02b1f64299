package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// DB is the subset of pgxpool.Pool the repository uses. pgxmock's pool
// satisfies it too, which keeps the repository testable without a server.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider

	err := row.Scan(
		&p.ID,
		&p.BusinessName,
		&p.Timezone,
		&p.BookingEnabled,
		&p.ConfirmationMessage,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanOffering(row pgx.Row) (*Offering, error) {
	var s Offering

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Name,
		&s.DurationMinutes,
		&s.PriceCents,
		&s.Active,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	var email, phone *string
	var expiresAt *time.Time

	err := row.Scan(
		&r.ID,
		&r.ProviderID,
		&r.ServiceID,
		&r.ClientName,
		&email,
		&phone,
		&r.Notes,
		&r.StartAt,
		&r.DurationMinutes,
		&r.Status,
		&expiresAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	r.ClientEmail = email
	r.ClientPhone = phone
	r.ExpiresAt = expiresAt
	return &r, nil
}

const requestColumns = `id, provider_id, service_id, client_name, client_email, client_phone,
		       notes, start_at, duration_minutes, status, expires_at, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, business_name, timezone, booking_enabled, confirmation_message, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) GetScheduleConfig(ctx context.Context, providerID uuid.UUID) (*ScheduleConfig, error) {
	var c ScheduleConfig
	var hoursJSON []byte

	err := r.db.QueryRow(ctx, `
		SELECT provider_id, buffer_minutes, advance_booking_days, min_notice_hours,
		       require_email, require_phone, business_hours, blocked_dates, updated_at
		FROM schedule_configs
		WHERE provider_id = $1
	`, providerID).Scan(
		&c.ProviderID,
		&c.BufferMinutes,
		&c.AdvanceBookingDays,
		&c.MinNoticeHours,
		&c.RequireEmail,
		&c.RequirePhone,
		&hoursJSON,
		&c.BlockedDates,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(hoursJSON, &c.BusinessHours); err != nil {
		return nil, fmt.Errorf("decode business hours: %w", err)
	}

	return &c, nil
}

func (r *PgRepository) GetService(ctx context.Context, providerID, serviceID uuid.UUID) (*Offering, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, provider_id, name, duration_minutes, price_cents, active, created_at
		FROM services
		WHERE id = $1 AND provider_id = $2 AND active
	`, serviceID, providerID)
	return scanOffering(row)
}

func (r *PgRepository) ListActiveServices(ctx context.Context, providerID uuid.UUID) ([]Offering, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, provider_id, name, duration_minutes, price_cents, active, created_at
		FROM services
		WHERE provider_id = $1 AND active
		ORDER BY name
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Offering
	for rows.Next() {
		s, err := scanOffering(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	return result, rows.Err()
}

func (r *PgRepository) ListActiveRequestsInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Request, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM booking_requests
		WHERE provider_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_at < $3
		  AND start_at + (duration_minutes * interval '1 minute') > $2
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}

	return result, rows.Err()
}

// CreateRequestIfFree re-checks for overlapping active requests inside a
// transaction before inserting. The row lock on competing rows plus the
// partial unique index on (provider_id, start_at) make this the single
// source of truth for conflicts.
func (r *PgRepository) CreateRequestIfFree(ctx context.Context, req Request) (*Request, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	endAt := req.StartAt.Add(time.Duration(req.DurationMinutes) * time.Minute)

	var conflicts int
	err = tx.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT id
			FROM booking_requests
			WHERE provider_id = $1
			  AND status IN ('pending', 'confirmed')
			  AND start_at < $3
			  AND start_at + (duration_minutes * interval '1 minute') > $2
			FOR UPDATE
		) conflicting
	`, req.ProviderID, req.StartAt, endAt).Scan(&conflicts)
	if err != nil {
		return nil, fmt.Errorf("re-check conflicts: %w", err)
	}
	if conflicts > 0 {
		return nil, ErrSlotTaken
	}

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO booking_requests
			(id, provider_id, service_id, client_name, client_email, client_phone,
			 notes, start_at, duration_minutes, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10, now(), now())
		RETURNING `+requestColumns+`
	`, req.ID, req.ProviderID, req.ServiceID, req.ClientName, req.ClientEmail,
		req.ClientPhone, req.Notes, req.StartAt, req.DurationMinutes, req.ExpiresAt)

	created, err := scanRequest(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert booking request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("commit: %w", err)
	}

	return created, nil
}

func (r *PgRepository) GetRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM booking_requests
		WHERE id = $1
	`, id)
	return scanRequest(row)
}

func (r *PgRepository) UpdateRequestStatus(ctx context.Context, id uuid.UUID, from, to RequestStatus) (*Request, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE booking_requests
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+requestColumns+`
	`, id, to, from)
	return scanRequest(row)
}

func (r *PgRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]Request, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM booking_requests
		WHERE status = 'pending'
		  AND expires_at IS NOT NULL
		  AND expires_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}

	return result, rows.Err()
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev BookingEvent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_events (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BookingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert booking event: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
