// Package notify emits fire-and-forget "transition applied" events after a
// successful commit. Delivery (email, chat, webhooks) belongs to external
// consumers; a failed emit is logged and never rolls back the commit.
package notify

import (
	"context"
	"log"
	"time"
)

// emitTimeout bounds a single async emit so slow brokers cannot pile up goroutines.
const emitTimeout = 5 * time.Second

// Event describes one committed workflow transition.
type Event struct {
	ItemID     string    `json:"item_id"`
	Action     string    `json:"action"`
	FromState  string    `json:"from_state"`
	ToState    string    `json:"to_state"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	AssigneeID string    `json:"assignee_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier emits transition events. Callers use it best-effort: log and ignore errors.
type Notifier interface {
	// Emit sends a single event. Implementations may block briefly; call from
	// a goroutine if needed. Returns an error only on write failure.
	Emit(ctx context.Context, event *Event) error
	// Close releases resources (e.g. the Kafka writer). Safe to call if already closed.
	Close() error
}

// EmitAsync runs Emit in a goroutine so the caller is not blocked. notifier
// and event may be nil; then EmitAsync returns without starting a goroutine.
// The goroutine uses context.Background() with emitTimeout so command
// cancellation does not abort an in-flight emit of an already-committed
// transition.
func EmitAsync(notifier Notifier, event *Event) {
	if notifier == nil || event == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := notifier.Emit(ctx, event); err != nil {
			log.Printf("notify: async emit failed: %v", err)
		}
	}()
}
