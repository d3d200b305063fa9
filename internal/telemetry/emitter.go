// Package telemetry records the append-only security event journal.
package telemetry

import (
	"context"
	"time"
)

// Kind identifies a security-relevant transition.
type Kind string

const (
	KindPackRequested        Kind = "PACK_REQUESTED"
	KindDeckRequested        Kind = "DECK_REQUESTED"
	KindPackOpened           Kind = "PACK_OPENED"
	KindDeckOpened           Kind = "DECK_OPENED"
	KindEmergencyPause       Kind = "EMERGENCY_PAUSE"
	KindEmergencyUnpause     Kind = "EMERGENCY_UNPAUSE"
	KindMintingLocked        Kind = "MINTING_LOCKED"
	KindPriceChangesLocked   Kind = "PRICE_CHANGES_LOCKED"
	KindCatalogLocked        Kind = "CATALOG_LOCKED"
	KindRoyaltiesDistributed Kind = "ROYALTIES_DISTRIBUTED"
	KindRateLimited          Kind = "RATE_LIMITED"
	KindEmissionCapHit       Kind = "EMISSION_CAP_HIT"
	KindRefundCredited       Kind = "REFUND_CREDITED"
	KindRequestReclaimed     Kind = "REQUEST_RECLAIMED"
	KindFulfillmentReplayed  Kind = "FULFILLMENT_REPLAYED"
	KindOpeningAborted       Kind = "OPENING_ABORTED"
)

// SecurityEvent is one entry in the append-only security journal.
type SecurityEvent struct {
	ID        int64
	Kind      Kind
	Actor     string
	Timestamp time.Time
	Metadata  map[string]string
}

// Store persists security events. Append returns the journal-assigned
// sequence number.
type Store interface {
	AppendSecurityEvent(ctx context.Context, evt SecurityEvent) (int64, error)
}

// Sink receives a copy of every emitted event, for live streaming.
type Sink interface {
	Publish(evt SecurityEvent)
}

// Emitter records security events.
type Emitter struct {
	store Store
	sink  Sink
	clock func() time.Time
}

// NewEmitter creates a new security event emitter.
func NewEmitter(store Store) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// WithSink attaches a live sink that observes every emitted event.
func (e *Emitter) WithSink(sink Sink) *Emitter {
	e.sink = sink
	return e
}

// WithClock overrides the emitter clock, for tests.
func (e *Emitter) WithClock(clock func() time.Time) *Emitter {
	e.clock = clock
	return e
}

// Emit records a security event. It is a no-op when the emitter or its
// store is nil, so callers never guard emission sites.
func (e *Emitter) Emit(ctx context.Context, kind Kind, actor string, metadata map[string]string) error {
	if e == nil || e.store == nil {
		return nil
	}

	evt := SecurityEvent{
		Kind:     kind,
		Actor:    actor,
		Metadata: metadata,
	}
	if e.clock == nil {
		evt.Timestamp = time.Now().UTC()
	} else {
		evt.Timestamp = e.clock().UTC()
	}

	seq, err := e.store.AppendSecurityEvent(ctx, evt)
	if err != nil {
		return err
	}
	// The sink observes the event with its journal sequence, so live
	// subscribers and journal readers agree on numbering.
	evt.ID = seq
	if e.sink != nil {
		e.sink.Publish(evt)
	}
	return nil
}
