package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"servicedesk-control-plane/internal/ledger/domain"
)

// archivedEntry is the cold-storage line format. It carries the full chain
// fields so an archived segment can be re-verified on its own.
type archivedEntry struct {
	Sequence    uint64 `json:"sequence"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Action      string `json:"action"`
	ActorID     string `json:"actor_id"`
	ActorRole   string `json:"actor_role"`
	BeforeState string `json:"before_state"`
	AfterState  string `json:"after_state"`
	Timestamp   string `json:"timestamp"`
	PrevHash    string `json:"prev_hash"`
	Hash        string `json:"hash"`
}

// FileStore appends archived entries as JSONL, one file per UTC day.
type FileStore struct {
	dir  string
	nowF func() time.Time
}

// NewFileStore returns a cold store writing under dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create dir: %w", err)
	}
	return &FileStore{dir: dir, nowF: func() time.Time { return time.Now().UTC() }}, nil
}

// WriteEntries appends the entries to the current day's file and syncs it
// before returning, so a marked entry always has a durable cold copy.
func (s *FileStore) WriteEntries(ctx context.Context, entries []*domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	name := filepath.Join(s.dir, "audit-"+s.nowF().Format("20060102")+".jsonl")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, e := range entries {
		line, err := json.Marshal(archivedEntry{
			Sequence:    e.Sequence,
			EntityType:  e.EntityType,
			EntityID:    e.EntityID,
			Action:      e.Action,
			ActorID:     e.ActorID,
			ActorRole:   e.ActorRole,
			BeforeState: e.BeforeState,
			AfterState:  e.AfterState,
			Timestamp:   e.Timestamp.UTC().Format(time.RFC3339Nano),
			PrevHash:    e.PrevHash,
			Hash:        e.Hash,
		})
		if err != nil {
			return err
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return f.Sync()
}
