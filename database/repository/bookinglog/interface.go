package bookinglogRepo

import (
	"context"

	"beatbook/models"
)

// BookingLogRepository persists committed bookings. Entries are keyed by an
// idempotency hash so a commit retried for the same session and data is
// detected instead of written twice.
type BookingLogRepository interface {
	// EnsureIndexes creates the unique index on the idempotency key.
	EnsureIndexes(ctx context.Context) error

	// InsertUnique writes the entry. It returns alreadyCommitted=true when an
	// entry with the same idempotency key exists, in which case nothing is
	// written.
	InsertUnique(ctx context.Context, entry models.BookingLogEntry) (alreadyCommitted bool, err error)

	// GetByKey fetches a committed entry by idempotency key, or nil if absent.
	GetByKey(ctx context.Context, key string) (*models.BookingLogEntry, error)

	// ListBySession returns all committed entries for a session, newest first.
	ListBySession(ctx context.Context, sessionID string) ([]models.BookingLogEntry, error)
}
