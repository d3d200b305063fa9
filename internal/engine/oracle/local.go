package oracle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/packworks/internal/platform/id"
	"github.com/louisbranch/packworks/internal/random"
)

// Local is a development oracle backed by crypto/rand.
//
// It assigns request ids and delivers words asynchronously after a
// configurable delay, mimicking a VRF coordinator's request/callback gap.
// It is not verifiable randomness and must not serve production traffic.
type Local struct {
	mu        sync.Mutex
	fulfiller Fulfiller
	delay     time.Duration
	pending   map[string]int
}

// NewLocal creates a local oracle delivering after delay. A negative delay
// disables automatic delivery; tests then call Deliver explicitly.
func NewLocal(delay time.Duration) *Local {
	return &Local{
		delay:   delay,
		pending: map[string]int{},
	}
}

// Attach wires the fulfiller that receives deliveries. Construction order
// requires this setter: the orchestrator needs the oracle and the oracle
// needs the orchestrator.
func (l *Local) Attach(fulfiller Fulfiller) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fulfiller = fulfiller
}

// Request assigns a request id and schedules delivery.
func (l *Local) Request(ctx context.Context, words int) (string, error) {
	if words <= 0 {
		return "", fmt.Errorf("word count must be positive")
	}

	requestID, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("assign request id: %w", err)
	}

	l.mu.Lock()
	l.pending[requestID] = words
	l.mu.Unlock()

	if l.delay >= 0 {
		go func() {
			time.Sleep(l.delay)
			if err := l.Deliver(context.Background(), requestID); err != nil {
				log.Printf("local oracle deliver %s: %v", requestID, err)
			}
		}()
	}
	return requestID, nil
}

// Deliver generates the pending request's words and invokes the fulfiller.
func (l *Local) Deliver(ctx context.Context, requestID string) error {
	l.mu.Lock()
	count, ok := l.pending[requestID]
	fulfiller := l.fulfiller
	if ok {
		delete(l.pending, requestID)
	}
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown pending request %s", requestID)
	}
	if fulfiller == nil {
		return fmt.Errorf("no fulfiller attached")
	}

	words := make([]uint64, count)
	for i := range words {
		word, err := random.NewWord()
		if err != nil {
			return fmt.Errorf("generate word: %w", err)
		}
		words[i] = word
	}
	return fulfiller.Fulfill(ctx, requestID, words)
}

// Pending returns the number of undelivered requests.
func (l *Local) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
