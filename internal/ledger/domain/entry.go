// Package domain holds the hash-chained audit entry and its canonical hash.
// Each entry's hash covers its own fields plus the previous entry's hash, so
// altering any committed entry invalidates every hash after it.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// GenesisHash stands in for the previous hash of entry 0.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// EntityTypeWorkflowItem is the entity type recorded for workflow item mutations.
const EntityTypeWorkflowItem = "workflow_item"

// Record is the logical content of an audit entry before it is sealed into
// the chain. The orchestrator builds one per command; the store assigns
// sequence and hashes at commit time.
type Record struct {
	EntityType  string
	EntityID    string
	Action      string
	ActorID     string
	ActorRole   string
	BeforeState string
	AfterState  string
	Timestamp   time.Time
}

// Entry is one committed, immutable line of the ledger.
type Entry struct {
	Sequence uint64
	Record
	PrevHash string
	Hash     string
	// ArchivedAt is set once the entry has been copied to cold storage.
	// Archival marks, it never removes.
	ArchivedAt *time.Time
}

// canonicalEntry fixes the field order and encoding of the hashed content.
// It is a struct, not a map, so json.Marshal output is deterministic.
// Timestamps are RFC3339Nano in UTC for the same reason.
type canonicalEntry struct {
	Sequence    uint64 `json:"sequence"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Action      string `json:"action"`
	ActorID     string `json:"actor_id"`
	ActorRole   string `json:"actor_role"`
	BeforeState string `json:"before_state"`
	AfterState  string `json:"after_state"`
	Timestamp   string `json:"timestamp"`
}

// CanonicalBytes returns the deterministic serialization of the entry's
// logical fields for the given sequence.
func CanonicalBytes(seq uint64, rec Record) []byte {
	b, err := json.Marshal(canonicalEntry{
		Sequence:    seq,
		EntityType:  rec.EntityType,
		EntityID:    rec.EntityID,
		Action:      rec.Action,
		ActorID:     rec.ActorID,
		ActorRole:   rec.ActorRole,
		BeforeState: rec.BeforeState,
		AfterState:  rec.AfterState,
		Timestamp:   rec.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		// canonicalEntry contains only strings and an integer; Marshal cannot fail.
		panic("ledger: canonical marshal: " + err.Error())
	}
	return b
}

// ComputeHash returns sha256(canonical_bytes || prevHash) as "sha256:<hex>".
func ComputeHash(seq uint64, rec Record, prevHash string) string {
	h := sha256.New()
	h.Write(CanonicalBytes(seq, rec))
	h.Write([]byte(prevHash))
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// Seal chains rec onto the entry identified by (seq-1, prevHash) and returns
// the committed form. For the genesis entry pass seq 0 and GenesisHash.
func Seal(rec Record, seq uint64, prevHash string) *Entry {
	rec.Timestamp = rec.Timestamp.UTC()
	return &Entry{
		Sequence: seq,
		Record:   rec,
		PrevHash: prevHash,
		Hash:     ComputeHash(seq, rec, prevHash),
	}
}

// VerifyEntry recomputes the entry's hash from its stored fields and stored
// previous hash and compares it to the stored hash.
func VerifyEntry(e *Entry) bool {
	return e.Hash == ComputeHash(e.Sequence, e.Record, e.PrevHash)
}
