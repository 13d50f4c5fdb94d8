package notify

import (
	"context"
	"testing"
	"time"
)

type captureNotifier struct {
	events chan *Event
}

func (n *captureNotifier) Emit(ctx context.Context, event *Event) error {
	n.events <- event
	return nil
}

func (n *captureNotifier) Close() error { return nil }

func TestEmitAsync_DeliversEvent(t *testing.T) {
	n := &captureNotifier{events: make(chan *Event, 1)}
	want := &Event{ItemID: "item-1", Action: "submit", ToState: "submitted"}

	EmitAsync(n, want)

	select {
	case got := <-n.events:
		if got.ItemID != want.ItemID || got.Action != want.Action {
			t.Errorf("event = %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async emit")
	}
}

func TestEmitAsync_NilSafe(t *testing.T) {
	// Neither call may panic or start a goroutine that blocks forever.
	EmitAsync(nil, &Event{ItemID: "item-1"})
	EmitAsync(&captureNotifier{events: make(chan *Event, 1)}, nil)
}

func TestNewKafkaNotifier_RequiresBrokersAndTopic(t *testing.T) {
	if n := NewKafkaNotifier(nil, "topic"); n != nil {
		t.Error("notifier created without brokers")
	}
	if n := NewKafkaNotifier([]string{"localhost:9092"}, ""); n != nil {
		t.Error("notifier created without a topic")
	}
}

func TestKafkaNotifier_NilReceiver(t *testing.T) {
	var n *KafkaNotifier
	if err := n.Emit(context.Background(), &Event{ItemID: "item-1"}); err != nil {
		t.Errorf("Emit on nil notifier: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Close on nil notifier: %v", err)
	}
}
