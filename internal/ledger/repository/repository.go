package repository

import (
	"context"
	"time"

	"servicedesk-control-plane/internal/ledger/domain"
)

// Repository defines the read and maintenance surface of the audit ledger.
// Appending happens only inside the store's commit transaction; nothing here
// can rewrite a committed entry.
type Repository interface {
	// Last returns the highest-sequence entry, or nil for an empty ledger.
	Last(ctx context.Context) (*domain.Entry, error)
	// ListByEntity returns the entries for one entity in ascending sequence order.
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.Entry, error)
	// ListUnarchivedBefore returns up to limit unarchived entries with a
	// timestamp before cutoff, ascending.
	ListUnarchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Entry, error)
	// MarkArchived records that the given entries have been copied to cold
	// storage. It touches only archived_at; the chain fields stay immutable.
	MarkArchived(ctx context.Context, sequences []uint64, at time.Time) error
	// OpenAlarm records an integrity violation at the given sequence. While an
	// uncleared alarm exists, the store refuses further appends.
	OpenAlarm(ctx context.Context, sequence uint64, expected, actual string, at time.Time) error
	// HasOpenAlarm reports whether an uncleared integrity alarm exists.
	HasOpenAlarm(ctx context.Context) (bool, error)
}
