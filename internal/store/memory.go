package store

import (
	"context"
	"sync"
	"time"

	"servicedesk-control-plane/internal/apperr"
	"servicedesk-control-plane/internal/ledger"
	lddomain "servicedesk-control-plane/internal/ledger/domain"
	wfdomain "servicedesk-control-plane/internal/workflow/domain"
)

// MemoryStore is an in-memory store with the same commit semantics as the
// Postgres store: one mutex-serialized unit per command, optimistic version
// checks, single-writer ledger appends, idempotency replay, and alarm-gated
// appends. Used by tests and local experiments; not durable.
type MemoryStore struct {
	mu      sync.Mutex
	items   map[string]*wfdomain.Item
	entries []*lddomain.Entry
	idem    map[string]string // idempotency key -> entity id
	alarms  int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*wfdomain.Item),
		idem:  make(map[string]string),
	}
}

// GetItem returns the item for id, or nil if not found.
func (s *MemoryStore) GetItem(ctx context.Context, id string) (*wfdomain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return it.Clone(), nil
}

// CommitCreate inserts the new draft item and appends its create entry as one
// unit. replayed is true when idemKey matched an earlier commit.
func (s *MemoryStore) CommitCreate(ctx context.Context, item *wfdomain.Item, rec lddomain.Record, idemKey string) (*wfdomain.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snapshot, ok := s.replay(idemKey); ok {
		return snapshot, true, nil
	}
	if s.alarms > 0 {
		return nil, false, &apperr.IntegrityViolationError{}
	}
	item = item.Clone()
	item.Version = 1
	s.items[item.ID] = item
	s.append(rec, idemKey)
	return item.Clone(), false, nil
}

// CommitTransition persists the mutated item guarded by expectedVersion and
// appends exactly one entry, or fails with no effect at all.
func (s *MemoryStore) CommitTransition(ctx context.Context, item *wfdomain.Item, expectedVersion int64, rec lddomain.Record, idemKey string) (*wfdomain.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snapshot, ok := s.replay(idemKey); ok {
		return snapshot, true, nil
	}
	if s.alarms > 0 {
		return nil, false, &apperr.IntegrityViolationError{}
	}
	cur, ok := s.items[item.ID]
	if !ok {
		return nil, false, &apperr.NotFoundError{ItemID: item.ID}
	}
	if cur.Version != expectedVersion {
		return nil, false, &apperr.ConcurrencyConflictError{ItemID: item.ID}
	}
	item = item.Clone()
	item.Version = expectedVersion + 1
	s.items[item.ID] = item
	s.append(rec, idemKey)
	return item.Clone(), false, nil
}

func (s *MemoryStore) replay(idemKey string) (*wfdomain.Item, bool) {
	if idemKey == "" {
		return nil, false
	}
	id, ok := s.idem[idemKey]
	if !ok {
		return nil, false
	}
	if it, ok := s.items[id]; ok {
		return it.Clone(), true
	}
	return nil, true
}

func (s *MemoryStore) append(rec lddomain.Record, idemKey string) {
	seq := uint64(0)
	prevHash := lddomain.GenesisHash
	if n := len(s.entries); n > 0 {
		seq = s.entries[n-1].Sequence + 1
		prevHash = s.entries[n-1].Hash
	}
	e := lddomain.Seal(rec, seq, prevHash)
	s.entries = append(s.entries, e)
	if idemKey != "" {
		s.idem[idemKey] = rec.EntityID
	}
}

// Last returns the highest-sequence entry, or nil for an empty ledger.
func (s *MemoryStore) Last(ctx context.Context) (*lddomain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil, nil
	}
	e := *s.entries[len(s.entries)-1]
	return &e, nil
}

// ListByEntity returns the entries for one entity in ascending sequence order.
func (s *MemoryStore) ListByEntity(ctx context.Context, entityType, entityID string) ([]*lddomain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*lddomain.Entry
	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// ListUnarchivedBefore returns up to limit unarchived entries older than cutoff.
func (s *MemoryStore) ListUnarchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*lddomain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*lddomain.Entry
	for _, e := range s.entries {
		if e.ArchivedAt == nil && e.Timestamp.Before(cutoff) {
			c := *e
			out = append(out, &c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// MarkArchived sets ArchivedAt for the given sequences.
func (s *MemoryStore) MarkArchived(ctx context.Context, sequences []uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uint64]bool, len(sequences))
	for _, seq := range sequences {
		want[seq] = true
	}
	at = at.UTC()
	for _, e := range s.entries {
		if want[e.Sequence] && e.ArchivedAt == nil {
			t := at
			e.ArchivedAt = &t
		}
	}
	return nil
}

// OpenAlarm records an integrity violation; further commits are refused.
func (s *MemoryStore) OpenAlarm(ctx context.Context, sequence uint64, expected, actual string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alarms++
	return nil
}

// HasOpenAlarm reports whether an uncleared integrity alarm exists.
func (s *MemoryStore) HasOpenAlarm(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarms > 0, nil
}

// Snapshot returns a point-in-time copy of the ledger for verification.
func (s *MemoryStore) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]*lddomain.Entry, len(s.entries))
	for i, e := range s.entries {
		c := *e
		entries[i] = &c
	}
	return &memSnapshot{entries: entries}, nil
}

// MutateEntry applies fn to the stored entry with the given sequence,
// bypassing the append-only discipline. Integrity tests use it to simulate
// storage-level tampering; nothing in normal operation calls it.
func (s *MemoryStore) MutateEntry(sequence uint64, fn func(*lddomain.Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Sequence == sequence {
			fn(e)
			return true
		}
	}
	return false
}

// EntryCount returns the number of committed entries.
func (s *MemoryStore) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type memSnapshot struct {
	entries []*lddomain.Entry
	pos     int
}

func (s *memSnapshot) Next(ctx context.Context, limit int) ([]*lddomain.Entry, error) {
	if s.pos >= len(s.entries) {
		return nil, nil
	}
	end := s.pos + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	batch := s.entries[s.pos:end]
	s.pos = end
	return batch, nil
}

func (s *memSnapshot) Close() error { return nil }
