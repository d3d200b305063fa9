package oracle

import (
	"context"
	"testing"
)

type memFulfiller struct {
	requestID string
	words     []uint64
}

func (m *memFulfiller) Fulfill(ctx context.Context, requestID string, words []uint64) error {
	m.requestID = requestID
	m.words = words
	return nil
}

func TestRequestAndDeliver(t *testing.T) {
	oracle := NewLocal(-1)
	fulfiller := &memFulfiller{}
	oracle.Attach(fulfiller)

	requestID, err := oracle.Request(context.Background(), 15)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if requestID == "" {
		t.Fatal("expected oracle-assigned request id")
	}
	if oracle.Pending() != 1 {
		t.Fatalf("expected 1 pending request, got %d", oracle.Pending())
	}

	if err := oracle.Deliver(context.Background(), requestID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if fulfiller.requestID != requestID {
		t.Fatalf("expected fulfillment for %s, got %s", requestID, fulfiller.requestID)
	}
	if len(fulfiller.words) != 15 {
		t.Fatalf("expected 15 words, got %d", len(fulfiller.words))
	}
	if oracle.Pending() != 0 {
		t.Fatalf("expected no pending requests, got %d", oracle.Pending())
	}
}

func TestDeliverUnknownRequest(t *testing.T) {
	oracle := NewLocal(-1)
	oracle.Attach(&memFulfiller{})

	if err := oracle.Deliver(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown request")
	}
}

func TestRequestRejectsNonPositiveWords(t *testing.T) {
	oracle := NewLocal(-1)
	if _, err := oracle.Request(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero words")
	}
}
