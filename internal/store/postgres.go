// Package store is the only component that writes the workflow item table
// and the audit ledger, and it always writes them together: one transaction
// per command, item mutation and ledger append committing or failing as a
// unit.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"servicedesk-control-plane/internal/apperr"
	lddomain "servicedesk-control-plane/internal/ledger/domain"
	wfdomain "servicedesk-control-plane/internal/workflow/domain"
)

// ledgerAppendLock is the pg_advisory_xact_lock key serializing ledger
// appends system-wide. Each entry's hash depends on its predecessor's, so
// appends are single-writer even across processes.
const ledgerAppendLock int64 = 0x5344_4350 // "SDCP"

const itemColumns = `id, title, description, category, priority, status, creator_id, assignee_id, created_at, updated_at, version`

// Postgres implements the orchestrator's store on a Postgres database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres returns a store backed by db.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// GetItem returns the item for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (s *Postgres) GetItem(ctx context.Context, id string) (*wfdomain.Item, error) {
	return getItem(ctx, s.db, id)
}

// CommitCreate inserts the new draft item and appends its create entry in one
// transaction. If idemKey matches an already-committed command, the stored
// snapshot is returned with replayed true instead of applying the command
// again.
func (s *Postgres) CommitCreate(ctx context.Context, item *wfdomain.Item, rec lddomain.Record, idemKey string) (*wfdomain.Item, bool, error) {
	return s.commit(ctx, item, rec, idemKey, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO workflow_items (`+itemColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)`,
			item.ID, item.Title, item.Description, string(item.Category), string(item.Priority),
			string(item.Status), item.CreatorID, nullable(item.AssigneeID), item.CreatedAt.UTC(), item.UpdatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert workflow item: %w", err)
		}
		item.Version = 1
		return nil
	})
}

// CommitTransition persists the mutated item guarded by expectedVersion and
// appends exactly one entry. A version mismatch fails the whole transaction
// with ConcurrencyConflictError before anything reaches the ledger.
func (s *Postgres) CommitTransition(ctx context.Context, item *wfdomain.Item, expectedVersion int64, rec lddomain.Record, idemKey string) (*wfdomain.Item, bool, error) {
	return s.commit(ctx, item, rec, idemKey, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE workflow_items
			 SET title = $1, description = $2, category = $3, priority = $4, status = $5,
			     assignee_id = $6, updated_at = $7, version = version + 1
			 WHERE id = $8 AND version = $9`,
			item.Title, item.Description, string(item.Category), string(item.Priority), string(item.Status),
			nullable(item.AssigneeID), item.UpdatedAt.UTC(), item.ID, expectedVersion)
		if err != nil {
			return fmt.Errorf("update workflow item: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			cur, err := getItem(ctx, tx, item.ID)
			if err != nil {
				return err
			}
			if cur == nil {
				return &apperr.NotFoundError{ItemID: item.ID}
			}
			return &apperr.ConcurrencyConflictError{ItemID: item.ID}
		}
		item.Version = expectedVersion + 1
		return nil
	})
}

// commit runs one atomic unit: advisory lock, alarm check, idempotency
// replay check, the item mutation, then the sealed ledger append. replayed is
// true when idemKey matched an earlier commit and nothing was applied.
func (s *Postgres) commit(ctx context.Context, item *wfdomain.Item, rec lddomain.Record, idemKey string, mutate func(*sql.Tx) error) (*wfdomain.Item, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerAppendLock); err != nil {
		return nil, false, fmt.Errorf("ledger append lock: %w", err)
	}

	var alarmOpen bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_alarms WHERE cleared_at IS NULL)`).Scan(&alarmOpen); err != nil {
		return nil, false, fmt.Errorf("alarm check: %w", err)
	}
	if alarmOpen {
		return nil, false, &apperr.IntegrityViolationError{}
	}

	if idemKey != "" {
		var entityID string
		err := tx.QueryRowContext(ctx, `SELECT entity_id FROM audit_entries WHERE idempotency_key = $1`, idemKey).Scan(&entityID)
		switch {
		case err == nil:
			// Already applied; return the committed snapshot without a second entry.
			snapshot, err := getItem(ctx, tx, entityID)
			return snapshot, true, err
		case !errors.Is(err, sql.ErrNoRows):
			return nil, false, fmt.Errorf("idempotency check: %w", err)
		}
	}

	if err := mutate(tx); err != nil {
		return nil, false, err
	}

	var seq uint64
	prevHash := lddomain.GenesisHash
	var lastSeq sql.NullInt64
	var lastHash sql.NullString
	row := tx.QueryRowContext(ctx, `SELECT sequence, hash FROM audit_entries ORDER BY sequence DESC LIMIT 1`)
	if err := row.Scan(&lastSeq, &lastHash); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("read last entry: %w", err)
		}
	} else {
		seq = uint64(lastSeq.Int64) + 1
		prevHash = lastHash.String
	}

	entry := lddomain.Seal(rec, seq, prevHash)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO audit_entries (sequence, entity_type, entity_id, action, actor_id, actor_role,
		     before_state, after_state, ts, prev_hash, hash, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		int64(entry.Sequence), entry.EntityType, entry.EntityID, entry.Action, entry.ActorID, entry.ActorRole,
		entry.BeforeState, entry.AfterState, entry.Timestamp, entry.PrevHash, entry.Hash, nullable(idemKey))
	if err != nil {
		return nil, false, fmt.Errorf("append entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return item.Clone(), false, nil
}

// querier covers *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItem(ctx context.Context, q querier, id string) (*wfdomain.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM workflow_items WHERE id = $1`, id)
	var it wfdomain.Item
	var category, priority, status string
	var assignee sql.NullString
	err := row.Scan(&it.ID, &it.Title, &it.Description, &category, &priority, &status,
		&it.CreatorID, &assignee, &it.CreatedAt, &it.UpdatedAt, &it.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	it.Category = wfdomain.Category(category)
	it.Priority = wfdomain.Priority(priority)
	it.Status = wfdomain.Status(status)
	if assignee.Valid {
		it.AssigneeID = assignee.String
	}
	it.CreatedAt = it.CreatedAt.UTC()
	it.UpdatedAt = it.UpdatedAt.UTC()
	return &it, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
