package eventbus

import "testing"

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestSubscribeAll(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: "dispatch.sent"})
	b.Publish(Event{Type: "reminder.scheduled"})

	got := drain(ch)
	if len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
	if got[0].Time.IsZero() {
		t.Fatal("publish did not stamp the event time")
	}
}

func TestSubscribeFiltered(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4, "dispatch.sent", "dispatch.failed")
	defer unsub()

	b.Publish(Event{Type: "reminder.scheduled"})
	b.Publish(Event{Type: "dispatch.sent"})
	b.Publish(Event{Type: "restore.done"})
	b.Publish(Event{Type: "dispatch.failed"})

	got := drain(ch)
	if len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
	if got[0].Type != "dispatch.sent" || got[1].Type != "dispatch.failed" {
		t.Fatalf("types = %q, %q", got[0].Type, got[1].Type)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	// Second publish overflows the buffer and must drop, not stall.
	b.Publish(Event{Type: "dispatch.sent"})
	b.Publish(Event{Type: "dispatch.sent"})

	if got := drain(ch); len(got) != 1 {
		t.Fatalf("received %d events, want 1", len(got))
	}
}

func TestPublishAfterUnsubscribe(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1, "dispatch.sent")
	unsub()
	unsub() // idempotent

	// Must not panic on the closed channel.
	b.Publish(Event{Type: "dispatch.sent"})
}
