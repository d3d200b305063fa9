package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/packworks/internal/engine/catalog"
	"github.com/louisbranch/packworks/internal/engine/emission"
	"github.com/louisbranch/packworks/internal/engine/opening"
	"github.com/louisbranch/packworks/internal/engine/ratelimit"
	"github.com/louisbranch/packworks/internal/engine/security"
	"github.com/louisbranch/packworks/internal/telemetry"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Account is a payable account with a freezable flag. Frozen accounts
// reject incoming transfers, which routes refunds to credit instead.
type Account struct {
	Address string
	Balance int64
	Frozen  bool
}

// CatalogStore persists card designs, decks, and prices beyond the
// read-side the opening engine needs.
type CatalogStore interface {
	PutCatalogEntry(ctx context.Context, entry catalog.Entry) error
	RemoveCatalogEntry(ctx context.Context, designID uint64) error
	CatalogEntries(ctx context.Context) ([]catalog.Entry, error)
	CatalogEntry(ctx context.Context, designID uint64) (catalog.Entry, error)

	PutDeck(ctx context.Context, deck catalog.Deck) error
	Deck(ctx context.Context, name string) (catalog.Deck, error)
	Decks(ctx context.Context) ([]catalog.Deck, error)

	PackPrice(ctx context.Context) (int64, error)
	SetPackPrice(ctx context.Context, price int64) error
	SetDeckPrice(ctx context.Context, name string, price int64) error
}

// AccountStore moves value between the house and caller accounts.
type AccountStore interface {
	Deposit(ctx context.Context, address string, amount int64) error
	Collect(ctx context.Context, from string, amount int64) error
	Transfer(ctx context.Context, to string, amount int64) error
	Account(ctx context.Context, address string) (Account, error)
	SetAccountFrozen(ctx context.Context, address string, frozen bool) error
}

// EventStore appends and reads the durable security event journal. The
// journal is append-only; SecurityEvents pages forward from afterSeq.
type EventStore interface {
	AppendSecurityEvent(ctx context.Context, evt telemetry.SecurityEvent) (int64, error)
	SecurityEvents(ctx context.Context, afterSeq int64, limit int) ([]telemetry.SecurityEvent, error)
}

// RequestStore persists opening requests across restarts.
type RequestStore interface {
	PutOpeningRequest(ctx context.Context, req opening.Request) error
	OpeningRequest(ctx context.Context, id string) (opening.Request, error)
	ResolveOpeningRequest(ctx context.Context, id string, state opening.State, at time.Time) error
	OpeningRequestsByState(ctx context.Context, state opening.State) ([]opening.Request, error)
}

// Store is the full persistence surface the server wires together.
type Store interface {
	CatalogStore
	AccountStore
	EventStore
	RequestStore
	catalog.Registry
	emission.Store
	ratelimit.Store
	security.Store

	AddCredit(ctx context.Context, address string, amount int64) error
	TakeCredit(ctx context.Context, address string) (int64, error)
	Credit(ctx context.Context, address string) (int64, error)

	SetEmissionCap(ctx context.Context, cap uint64) error

	Close() error
}
