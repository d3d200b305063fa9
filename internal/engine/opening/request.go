package opening

import (
	"time"

	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
)

// Kind describes what a request opens.
type Kind int

const (
	// KindUnspecified represents an invalid kind value.
	KindUnspecified Kind = iota
	// KindPack opens randomized packs.
	KindPack
	// KindDeck opens a fixed-composition deck.
	KindDeck
)

// String returns the lowercase label for the kind.
func (k Kind) String() string {
	switch k {
	case KindPack:
		return "pack"
	case KindDeck:
		return "deck"
	default:
		return "unspecified"
	}
}

// ParseKind maps a persisted label back to a kind.
func ParseKind(label string) (Kind, bool) {
	switch label {
	case "pack":
		return KindPack, true
	case "deck":
		return KindDeck, true
	default:
		return KindUnspecified, false
	}
}

// State is the durable lifecycle state of an opening request.
type State string

const (
	// StateRequested means randomness was requested and not yet delivered.
	StateRequested State = "requested"
	// StateFulfilled is the terminal success state.
	StateFulfilled State = "fulfilled"
	// StateExpired is terminal: the request was reclaimed after the
	// fulfillment timeout and late deliveries are permanently blocked.
	StateExpired State = "expired"
	// StateRefunded is terminal: fulfillment aborted and the payment was
	// returned.
	StateRefunded State = "refunded"
)

// Request is one durable opening request, keyed by the oracle-assigned id.
//
// The gap between request and fulfillment spans transactions and possibly
// process restarts, so the whole record persists.
type Request struct {
	ID        string
	Requester string
	Kind      Kind
	// DeckName is set only for deck requests.
	DeckName string
	// Packs is the batch size for pack requests, 1 for decks.
	Packs int
	// Price is the amount retained after change was returned.
	Price int64
	// AmountPaid is the full transferred value.
	AmountPaid  int64
	RequestedAt time.Time
	State       State
	// ResolvedAt is set when the request reaches a terminal state.
	ResolvedAt *time.Time
}

// Terminal reports whether the request reached a final state.
func (r Request) Terminal() bool {
	return r.State != StateRequested
}

// Request lifecycle errors.
var (
	// ErrRequestUnknown indicates a fulfillment or reclaim for an id that
	// was never issued.
	ErrRequestUnknown = apperrors.New(apperrors.CodeRequestUnknown, "unknown opening request")
	// ErrAlreadyFulfilled indicates a replayed fulfillment.
	ErrAlreadyFulfilled = apperrors.New(apperrors.CodeRequestAlreadyFulfilled, "request already fulfilled")
	// ErrRequestExpired indicates a late fulfillment for a reclaimed or
	// aborted request.
	ErrRequestExpired = apperrors.New(apperrors.CodeRequestExpired, "request is expired")
	// ErrNotExpired indicates a reclaim attempt before the timeout.
	ErrNotExpired = apperrors.New(apperrors.CodeRequestNotExpired, "request has not expired yet")
	// ErrOracleUnavailable indicates the randomness request itself failed.
	ErrOracleUnavailable = apperrors.New(apperrors.CodeOracleUnavailable, "randomness oracle unavailable")
)
