package domain

import (
	"strings"
	"testing"
	"time"
)

func testRecord(seq uint64) Record {
	return Record{
		EntityType:  EntityTypeWorkflowItem,
		EntityID:    "item-1",
		Action:      "submit",
		ActorID:     "user-1",
		ActorRole:   "creator",
		BeforeState: "draft",
		AfterState:  "submitted",
		Timestamp:   time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC).Add(time.Duration(seq) * time.Second),
	}
}

func TestComputeHash_Deterministic(t *testing.T) {
	rec := testRecord(0)
	first := ComputeHash(3, rec, GenesisHash)
	for i := 0; i < 5; i++ {
		if got := ComputeHash(3, rec, GenesisHash); got != first {
			t.Fatalf("ComputeHash not deterministic: %s then %s", first, got)
		}
	}
	if !strings.HasPrefix(first, "sha256:") {
		t.Errorf("hash = %q, want sha256: prefix", first)
	}
	if len(first) != len("sha256:")+64 {
		t.Errorf("hash length = %d, want %d", len(first), len("sha256:")+64)
	}
}

func TestComputeHash_SensitiveToEveryField(t *testing.T) {
	base := ComputeHash(3, testRecord(0), GenesisHash)

	mutations := map[string]func(*Record){
		"entity_type":  func(r *Record) { r.EntityType = "other" },
		"entity_id":    func(r *Record) { r.EntityID = "item-2" },
		"action":       func(r *Record) { r.Action = "approve" },
		"actor_id":     func(r *Record) { r.ActorID = "user-2" },
		"actor_role":   func(r *Record) { r.ActorRole = "admin" },
		"before_state": func(r *Record) { r.BeforeState = "submitted" },
		"after_state":  func(r *Record) { r.AfterState = "approved" },
		"timestamp":    func(r *Record) { r.Timestamp = r.Timestamp.Add(time.Nanosecond) },
	}
	for field, mutate := range mutations {
		rec := testRecord(0)
		mutate(&rec)
		if got := ComputeHash(3, rec, GenesisHash); got == base {
			t.Errorf("mutating %s did not change the hash", field)
		}
	}

	if got := ComputeHash(4, testRecord(0), GenesisHash); got == base {
		t.Error("changing sequence did not change the hash")
	}
	if got := ComputeHash(3, testRecord(0), "sha256:ff"); got == base {
		t.Error("changing prev hash did not change the hash")
	}
}

func TestSeal_Chain(t *testing.T) {
	genesis := Seal(testRecord(0), 0, GenesisHash)
	if genesis.Sequence != 0 {
		t.Errorf("genesis sequence = %d, want 0", genesis.Sequence)
	}
	if genesis.PrevHash != GenesisHash {
		t.Errorf("genesis prev hash = %q, want genesis constant", genesis.PrevHash)
	}
	if !VerifyEntry(genesis) {
		t.Error("sealed genesis entry should verify")
	}

	second := Seal(testRecord(1), 1, genesis.Hash)
	if second.PrevHash != genesis.Hash {
		t.Errorf("second prev hash = %q, want %q", second.PrevHash, genesis.Hash)
	}
	if !VerifyEntry(second) {
		t.Error("sealed second entry should verify")
	}
	if second.Hash == genesis.Hash {
		t.Error("chained entries must not share a hash")
	}
}

func TestVerifyEntry_DetectsTamper(t *testing.T) {
	e := Seal(testRecord(0), 0, GenesisHash)
	e.AfterState = "approved"
	if VerifyEntry(e) {
		t.Error("tampered entry should fail verification")
	}
}

func TestCanonicalBytes_FixedOrder(t *testing.T) {
	b := CanonicalBytes(0, testRecord(0))
	s := string(b)
	order := []string{`"sequence"`, `"entity_type"`, `"entity_id"`, `"action"`, `"actor_id"`, `"actor_role"`, `"before_state"`, `"after_state"`, `"timestamp"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(s, key)
		if idx < 0 {
			t.Fatalf("canonical bytes missing %s: %s", key, s)
		}
		if idx < last {
			t.Fatalf("canonical field %s out of order: %s", key, s)
		}
		last = idx
	}
}
