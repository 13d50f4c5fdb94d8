package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"servicedesk-control-plane/internal/ledger"
	"servicedesk-control-plane/internal/ledger/domain"
)

const entryColumns = `sequence, entity_type, entity_id, action, actor_id, actor_role, before_state, after_state, ts, prev_hash, hash, archived_at`

// PostgresRepository reads and maintains the audit ledger in Postgres.
// The audit_entries table rejects in-place mutation at the trigger level, so
// even a bug in this code cannot silently corrupt history.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a ledger repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Last returns the highest-sequence entry, or nil for an empty ledger.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Last(ctx context.Context) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM audit_entries ORDER BY sequence DESC LIMIT 1`)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// ListByEntity returns the entries for one entity in ascending sequence order.
func (r *PostgresRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE entity_type = $1 AND entity_id = $2 ORDER BY sequence`,
		entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListUnarchivedBefore returns up to limit unarchived entries older than cutoff.
func (r *PostgresRepository) ListUnarchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE archived_at IS NULL AND ts < $1 ORDER BY sequence LIMIT $2`,
		cutoff.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// MarkArchived sets archived_at for the given sequences. The append-only
// trigger on audit_entries permits exactly this column and nothing else.
func (r *PostgresRepository) MarkArchived(ctx context.Context, sequences []uint64, at time.Time) error {
	if len(sequences) == 0 {
		return nil
	}
	seqs := make([]int64, len(sequences))
	for i, s := range sequences {
		seqs[i] = int64(s)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE audit_entries SET archived_at = $1 WHERE sequence = ANY($2) AND archived_at IS NULL`,
		at.UTC(), seqs)
	return err
}

// OpenAlarm records an integrity violation. Appends are refused while an
// uncleared alarm exists; clearing is a manual operator action.
func (r *PostgresRepository) OpenAlarm(ctx context.Context, sequence uint64, expected, actual string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_alarms (sequence, expected_hash, actual_hash, detected_at) VALUES ($1, $2, $3, $4)`,
		int64(sequence), expected, actual, at.UTC())
	return err
}

// HasOpenAlarm reports whether an uncleared integrity alarm exists.
func (r *PostgresRepository) HasOpenAlarm(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_alarms WHERE cleared_at IS NULL)`).Scan(&exists)
	return exists, err
}

// Snapshot opens a REPEATABLE READ read-only transaction so a verification
// walk sees one consistent ledger state while appends continue.
func (r *PostgresRepository) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return &pgSnapshot{tx: tx}, nil
}

type pgSnapshot struct {
	tx   *sql.Tx
	next uint64
}

func (s *pgSnapshot) Next(ctx context.Context, limit int) ([]*domain.Entry, error) {
	rows, err := s.tx.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE sequence >= $1 ORDER BY sequence LIMIT $2`,
		int64(s.next), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		s.next = entries[len(entries)-1].Sequence + 1
	}
	return entries, nil
}

func (s *pgSnapshot) Close() error {
	return s.tx.Rollback()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var e domain.Entry
	var seq int64
	var archivedAt sql.NullTime
	err := row.Scan(&seq, &e.EntityType, &e.EntityID, &e.Action, &e.ActorID, &e.ActorRole,
		&e.BeforeState, &e.AfterState, &e.Timestamp, &e.PrevHash, &e.Hash, &archivedAt)
	if err != nil {
		return nil, err
	}
	e.Sequence = uint64(seq)
	e.Timestamp = e.Timestamp.UTC()
	if archivedAt.Valid {
		t := archivedAt.Time.UTC()
		e.ArchivedAt = &t
	}
	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]*domain.Entry, error) {
	var out []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger rows: %w", err)
	}
	return out, nil
}
