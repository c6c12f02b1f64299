// Package notify delivers booking confirmations off the commit path.
// Delivery is best-effort: failures are logged, retried a few times, and
// never surfaced as a booking failure.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/glowtide/spa-booking-engine/internal/observability/metrics"
)

// Confirmation carries everything a confirmation message needs. All
// date/time fields arrive already formatted in the provider's timezone.
type Confirmation struct {
	BusinessName string
	ClientName   string
	ClientEmail  string
	ServiceName  string
	StartsAt     string // e.g. "Monday, January 2 at 9:40 AM"
	Message      string // provider-configured confirmation text
}

// Notifier sends a single confirmation. Implementations can be swapped
// (SendGrid, log-only) without changing callers.
type Notifier interface {
	SendConfirmation(ctx context.Context, c Confirmation) error
}

// Dispatcher fires confirmations in the background with bounded retries.
type Dispatcher struct {
	notifier Notifier
	log      zerolog.Logger
	attempts int
	backoff  time.Duration
}

func NewDispatcher(notifier Notifier, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		log:      log,
		attempts: 3,
		backoff:  2 * time.Second,
	}
}

// Dispatch sends c on a fresh goroutine. The caller's context is not
// reused: the booking is already committed and must not be tied to the
// request lifetime.
func (d *Dispatcher) Dispatch(c Confirmation) {
	if d == nil || d.notifier == nil {
		return
	}
	go d.send(c)
}

func (d *Dispatcher) send(c Confirmation) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		if err = d.notifier.SendConfirmation(ctx, c); err == nil {
			return
		}
		d.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("client", c.ClientName).
			Msg("confirmation delivery failed")

		if attempt < d.attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.backoff * time.Duration(attempt)):
			}
		}
	}

	metrics.IncNotifyFailure()
	d.log.Error().
		Err(err).
		Str("client", c.ClientName).
		Msg("confirmation delivery abandoned")
}
