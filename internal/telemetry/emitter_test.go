package telemetry

import (
	"context"
	"testing"
	"time"
)

type memStore struct {
	events []SecurityEvent
}

func (m *memStore) AppendSecurityEvent(ctx context.Context, evt SecurityEvent) (int64, error) {
	evt.ID = int64(len(m.events) + 1)
	m.events = append(m.events, evt)
	return evt.ID, nil
}

type memSink struct {
	events []SecurityEvent
}

func (m *memSink) Publish(evt SecurityEvent) {
	m.events = append(m.events, evt)
}

func TestEmitRecordsEvent(t *testing.T) {
	store := &memStore{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	emitter := NewEmitter(store).WithClock(func() time.Time { return at })

	err := emitter.Emit(context.Background(), KindPackRequested, "addr-1", map[string]string{"request_id": "abc"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(store.events))
	}
	evt := store.events[0]
	if evt.Kind != KindPackRequested || evt.Actor != "addr-1" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if !evt.Timestamp.Equal(at) {
		t.Fatalf("expected clock timestamp, got %v", evt.Timestamp)
	}
}

func TestEmitPublishesToSink(t *testing.T) {
	store := &memStore{}
	sink := &memSink{}
	emitter := NewEmitter(store).WithSink(sink)

	if err := emitter.Emit(context.Background(), KindRateLimited, "addr-2", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected sink to observe the event, got %d", len(sink.events))
	}
}

func TestEmitPublishesJournalSequence(t *testing.T) {
	store := &memStore{}
	sink := &memSink{}
	emitter := NewEmitter(store).WithSink(sink)

	ctx := context.Background()
	if err := emitter.Emit(ctx, KindPackRequested, "addr-1", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := emitter.Emit(ctx, KindPackOpened, "addr-1", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(sink.events))
	}
	if sink.events[0].ID != 1 || sink.events[1].ID != 2 {
		t.Fatalf("sink must carry the journal sequence, got %d then %d",
			sink.events[0].ID, sink.events[1].ID)
	}
}

func TestEmitNilEmitterIsNoop(t *testing.T) {
	var emitter *Emitter
	if err := emitter.Emit(context.Background(), KindPackOpened, "addr", nil); err != nil {
		t.Fatalf("nil emitter emit: %v", err)
	}
}
