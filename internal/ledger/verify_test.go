package ledger

import (
	"context"
	"testing"
	"time"

	"servicedesk-control-plane/internal/ledger/domain"
)

// sliceSource serves a fixed entry slice as repeated point-in-time snapshots.
type sliceSource struct {
	entries []*domain.Entry
}

func (s *sliceSource) Snapshot(ctx context.Context) (Snapshot, error) {
	return &sliceSnapshot{entries: s.entries}, nil
}

type sliceSnapshot struct {
	entries []*domain.Entry
	pos     int
}

func (s *sliceSnapshot) Next(ctx context.Context, limit int) ([]*domain.Entry, error) {
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

func (s *sliceSnapshot) Close() error { return nil }

func chain(t *testing.T, n int) []*domain.Entry {
	t.Helper()
	entries := make([]*domain.Entry, 0, n)
	prevHash := domain.GenesisHash
	base := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		e := domain.Seal(domain.Record{
			EntityType:  domain.EntityTypeWorkflowItem,
			EntityID:    "item-1",
			Action:      "submit",
			ActorID:     "user-1",
			ActorRole:   "creator",
			BeforeState: "draft",
			AfterState:  "submitted",
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}, uint64(i), prevHash)
		entries = append(entries, e)
		prevHash = e.Hash
	}
	return entries
}

func TestVerify_Intact(t *testing.T) {
	ctx := context.Background()
	res, err := Verify(ctx, &sliceSource{entries: chain(t, 1201)})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Valid {
		t.Fatalf("untampered ledger reported corrupted at %v", res.CorruptedAt)
	}
	if res.Entries != 1201 {
		t.Errorf("entries walked = %d, want 1201", res.Entries)
	}
}

func TestVerify_EmptyLedger(t *testing.T) {
	res, err := Verify(context.Background(), &sliceSource{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Valid || res.Entries != 0 {
		t.Errorf("empty ledger: valid = %v entries = %d, want valid with 0 entries", res.Valid, res.Entries)
	}
}

func TestVerify_TamperedField(t *testing.T) {
	entries := chain(t, 10)
	entries[4].ActorID = "intruder"

	res, err := Verify(context.Background(), &sliceSource{entries: entries})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Valid {
		t.Fatal("tampered ledger reported valid")
	}
	if res.CorruptedAt == nil || *res.CorruptedAt != 4 {
		t.Fatalf("corrupted at = %v, want 4", res.CorruptedAt)
	}
	if res.Expected == res.Actual {
		t.Error("expected and actual hashes should differ at the corruption point")
	}
}

func TestVerify_TamperedPrevHash(t *testing.T) {
	entries := chain(t, 10)
	original := entries[4].PrevHash
	entries[4].PrevHash = "sha256:deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	res, err := Verify(context.Background(), &sliceSource{entries: entries})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Valid {
		t.Fatal("broken prev hash link reported valid")
	}
	if res.CorruptedAt == nil || *res.CorruptedAt != 4 {
		t.Fatalf("corrupted at = %v, want 4", res.CorruptedAt)
	}
	if res.Expected != original {
		t.Errorf("expected = %q, want the previous entry's hash %q", res.Expected, original)
	}
	if res.Actual != entries[4].PrevHash {
		t.Errorf("actual = %q, want the stored prev hash", res.Actual)
	}
}

func TestVerify_TamperedTimestamp(t *testing.T) {
	entries := chain(t, 10)
	entries[6].Timestamp = entries[6].Timestamp.Add(time.Second)

	res, err := Verify(context.Background(), &sliceSource{entries: entries})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Valid {
		t.Fatal("backdated entry reported valid")
	}
	if res.CorruptedAt == nil || *res.CorruptedAt != 6 {
		t.Fatalf("corrupted at = %v, want 6", res.CorruptedAt)
	}
}

func TestVerify_TamperedHashBreaksDownstream(t *testing.T) {
	entries := chain(t, 10)
	// Recompute entry 4 so it is self-consistent but no longer matches what
	// entry 5 was chained on.
	entries[4].ActorID = "intruder"
	entries[4].Hash = domain.ComputeHash(4, entries[4].Record, entries[4].PrevHash)

	res, err := Verify(context.Background(), &sliceSource{entries: entries})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Valid {
		t.Fatal("re-hashed tampering reported valid")
	}
	if res.CorruptedAt == nil || *res.CorruptedAt != 5 {
		t.Fatalf("corrupted at = %v, want first downstream entry 5", res.CorruptedAt)
	}
}

func TestVerify_SequenceGap(t *testing.T) {
	entries := chain(t, 10)
	entries = append(entries[:3], entries[4:]...)

	res, err := Verify(context.Background(), &sliceSource{entries: entries})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Valid {
		t.Fatal("gapped ledger reported valid")
	}
	if res.CorruptedAt == nil || *res.CorruptedAt != 3 {
		t.Fatalf("corrupted at = %v, want 3", res.CorruptedAt)
	}
}

func TestVerify_Idempotent(t *testing.T) {
	src := &sliceSource{entries: chain(t, 20)}
	src.entries[7].Action = "approve"

	first, err := Verify(context.Background(), src)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := Verify(context.Background(), src)
		if err != nil {
			t.Fatalf("Verify repeat %d: %v", i, err)
		}
		if again.Valid != first.Valid || *again.CorruptedAt != *first.CorruptedAt ||
			again.Expected != first.Expected || again.Actual != first.Actual {
			t.Fatalf("repeat %d returned a different result: %+v vs %+v", i, again, first)
		}
	}
}
