// Package opening implements the pack/deck opening state machine.
package opening

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/louisbranch/packworks/internal/engine/catalog"
	"github.com/louisbranch/packworks/internal/engine/emission"
	"github.com/louisbranch/packworks/internal/engine/oracle"
	"github.com/louisbranch/packworks/internal/engine/payment"
	"github.com/louisbranch/packworks/internal/engine/ratelimit"
	"github.com/louisbranch/packworks/internal/engine/rarity"
	"github.com/louisbranch/packworks/internal/engine/royalty"
	"github.com/louisbranch/packworks/internal/engine/security"
	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
	"github.com/louisbranch/packworks/internal/random"
	"github.com/louisbranch/packworks/internal/telemetry"
)

// Config carries the opening engine tunables.
type Config struct {
	// PackSize is the number of cards in one pack.
	PackSize int
	// MaxBatchPacks bounds packs per call, which also bounds the work (and
	// any refund) the later fulfillment must perform.
	MaxBatchPacks int
	// MinInterval is the per-caller cooldown between opens.
	MinInterval time.Duration
	// VRFTimeout is how long a request stays claimable by the oracle before
	// the requester may reclaim it.
	VRFTimeout time.Duration
	// RoyaltyBps is the royalty fraction in basis points.
	RoyaltyBps int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PackSize:      15,
		MaxBatchPacks: 10,
		MinInterval:   30 * time.Second,
		VRFTimeout:    time.Hour,
		RoyaltyBps:    royalty.DefaultBps,
	}
}

// RequestStore persists opening requests.
type RequestStore interface {
	PutOpeningRequest(ctx context.Context, req Request) error
	OpeningRequest(ctx context.Context, id string) (Request, error)
	// ResolveOpeningRequest moves a request to a terminal state.
	ResolveOpeningRequest(ctx context.Context, id string, state State, at time.Time) error
}

// CatalogReader provides the catalog snapshot and prices the engine reads.
type CatalogReader interface {
	CatalogEntries(ctx context.Context) ([]catalog.Entry, error)
	CatalogEntry(ctx context.Context, designID uint64) (catalog.Entry, error)
	Deck(ctx context.Context, name string) (catalog.Deck, error)
	PackPrice(ctx context.Context) (int64, error)
}

// Bank collects the transferred value from the buyer's account.
type Bank interface {
	Collect(ctx context.Context, from string, amount int64) error
}

// Receipt describes an accepted open request.
type Receipt struct {
	RequestID string
	Price     int64
	Change    int64
	// ChangeCredited is true when the change refund degraded to credit.
	ChangeCredited bool
}

// MintedCard is one design's minted instances within a fulfillment.
type MintedCard struct {
	DesignID    uint64
	InstanceIDs []uint64
}

// Outcome describes a completed fulfillment.
type Outcome struct {
	Request   Request
	Minted    []MintedCard
	Royalties []royalty.Payout
}

// Orchestrator is the opening engine's top-level state machine.
//
// A single mutex serializes open, fulfill, and reclaim transitions: every
// precondition is validated before any state moves ("checks, then
// effects"), and nested entry during a transition is impossible.
type Orchestrator struct {
	mu sync.Mutex

	cfg       Config
	requests  RequestStore
	catalog   CatalogReader
	registry  catalog.Registry
	control   *security.Control
	limiter   *ratelimit.Limiter
	payments  *payment.Guard
	bank      Bank
	emission  *emission.Ledger
	royalties *royalty.Distributor
	oracle    oracle.Oracle
	events    *telemetry.Emitter
	clock     func() time.Time
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Requests  RequestStore
	Catalog   CatalogReader
	Registry  catalog.Registry
	Control   *security.Control
	Limiter   *ratelimit.Limiter
	Payments  *payment.Guard
	Bank      Bank
	Emission  *emission.Ledger
	Royalties *royalty.Distributor
	Oracle    oracle.Oracle
	Events    *telemetry.Emitter
}

// NewOrchestrator creates the opening orchestrator.
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		requests:  deps.Requests,
		catalog:   deps.Catalog,
		registry:  deps.Registry,
		control:   deps.Control,
		limiter:   deps.Limiter,
		payments:  deps.Payments,
		bank:      deps.Bank,
		emission:  deps.Emission,
		royalties: deps.Royalties,
		oracle:    deps.Oracle,
		events:    deps.Events,
		clock:     time.Now,
	}
}

// WithClock overrides the orchestrator clock, for tests.
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.clock = clock
	return o
}

// OpenPack accepts payment for packs randomized packs and requests
// randomness. The sale completes later, when the oracle delivers.
func (o *Orchestrator) OpenPack(ctx context.Context, caller string, value int64, packs int) (Receipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.control.CheckMintingAllowed(ctx, "openPack"); err != nil {
		return Receipt{}, err
	}
	if err := o.limiter.Check(ctx, caller, packs); err != nil {
		if apperrors.IsCode(err, apperrors.CodeOpenRateLimited) {
			_ = o.events.Emit(ctx, telemetry.KindRateLimited, caller, nil)
		}
		return Receipt{}, err
	}

	packPrice, err := o.catalog.PackPrice(ctx)
	if err != nil {
		return Receipt{}, err
	}
	price := packPrice * int64(packs)
	items := packs * o.cfg.PackSize

	return o.begin(ctx, Request{
		Requester: caller,
		Kind:      KindPack,
		Packs:     packs,
		Price:     price,
	}, value, items, telemetry.KindPackRequested)
}

// OpenDeck accepts payment for one fixed-composition deck and requests
// randomness. Decks consume no random words for selection, but the request
// still flows through the oracle so every sale shares one durable pipeline.
func (o *Orchestrator) OpenDeck(ctx context.Context, caller string, value int64, deckName string) (Receipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.control.CheckMintingAllowed(ctx, "openDeck"); err != nil {
		return Receipt{}, err
	}
	if err := o.limiter.Check(ctx, caller, 1); err != nil {
		if apperrors.IsCode(err, apperrors.CodeOpenRateLimited) {
			_ = o.events.Emit(ctx, telemetry.KindRateLimited, caller, nil)
		}
		return Receipt{}, err
	}

	deck, err := o.catalog.Deck(ctx, deckName)
	if err != nil {
		if apperrors.GetCode(err) != apperrors.CodeUnknown {
			return Receipt{}, err
		}
		return Receipt{}, apperrors.WithMetadata(apperrors.CodeDeckUnknown, "unknown deck", map[string]string{
			"deck": deckName,
		})
	}

	return o.begin(ctx, Request{
		Requester: caller,
		Kind:      KindDeck,
		DeckName:  deck.Name,
		Packs:     1,
		Price:     deck.Price,
	}, value, deck.Size(), telemetry.KindDeckRequested)
}

// begin runs the shared tail of both entry points: validate and collect
// payment, return change, reserve emission capacity, request randomness,
// persist the pending request.
func (o *Orchestrator) begin(ctx context.Context, req Request, value int64, items int, kind telemetry.Kind) (Receipt, error) {
	change, err := o.payments.Validate(value, req.Price)
	if err != nil {
		return Receipt{}, err
	}

	// Payment is accepted here; every failure below refunds it.
	if err := o.bank.Collect(ctx, req.Requester, value); err != nil {
		return Receipt{}, apperrors.Wrap(apperrors.CodePaymentInsufficient, "payment collection failed", err)
	}

	changeResult, err := o.payments.Refund(ctx, req.Requester, change)
	if err != nil {
		return Receipt{}, err
	}
	if changeResult.Credited {
		_ = o.events.Emit(ctx, telemetry.KindRefundCredited, req.Requester, map[string]string{
			"amount": strconv.FormatInt(change, 10),
		})
	}

	if err := o.emission.Reserve(ctx, uint64(items)); err != nil {
		_ = o.events.Emit(ctx, telemetry.KindEmissionCapHit, req.Requester, nil)
		if _, refundErr := o.payments.Refund(ctx, req.Requester, req.Price); refundErr != nil {
			return Receipt{}, refundErr
		}
		return Receipt{}, err
	}

	requestID, err := o.oracle.Request(ctx, items)
	if err != nil {
		if _, refundErr := o.payments.Refund(ctx, req.Requester, req.Price); refundErr != nil {
			return Receipt{}, refundErr
		}
		return Receipt{}, apperrors.Wrap(apperrors.CodeOracleUnavailable, "randomness oracle unavailable", err)
	}

	req.ID = requestID
	req.AmountPaid = value
	req.RequestedAt = o.clock().UTC()
	req.State = StateRequested
	if err := o.requests.PutOpeningRequest(ctx, req); err != nil {
		return Receipt{}, err
	}

	_ = o.events.Emit(ctx, kind, req.Requester, map[string]string{
		"request_id": req.ID,
		"price":      strconv.FormatInt(req.Price, 10),
	})

	return Receipt{
		RequestID:      req.ID,
		Price:          req.Price,
		Change:         change,
		ChangeCredited: changeResult.Credited,
	}, nil
}

// Fulfill resumes the pending request with the oracle's random words.
//
// Exactly one fulfillment is accepted per request id: a replay is rejected
// and logged before any state mutation.
func (o *Orchestrator) Fulfill(ctx context.Context, requestID string, words []uint64) (Outcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	req, err := o.requests.OpeningRequest(ctx, requestID)
	if err != nil {
		return Outcome{}, ErrRequestUnknown
	}
	switch req.State {
	case StateFulfilled:
		_ = o.events.Emit(ctx, telemetry.KindFulfillmentReplayed, req.Requester, map[string]string{
			"request_id": requestID,
		})
		return Outcome{}, ErrAlreadyFulfilled
	case StateExpired, StateRefunded:
		return Outcome{}, ErrRequestExpired
	}

	if err := o.control.CheckMintingAllowed(ctx, "fulfill"); err != nil {
		return Outcome{}, o.abort(ctx, req, err)
	}

	items := o.itemCount(ctx, req)
	if items <= 0 {
		return Outcome{}, o.abort(ctx, req, apperrors.New(apperrors.CodeDeckUnknown, "deck composition unavailable"))
	}

	// Re-check capacity: the open-time reservation was advisory and other
	// requests may have committed since.
	if err := o.emission.Reserve(ctx, uint64(items)); err != nil {
		_ = o.events.Emit(ctx, telemetry.KindEmissionCapHit, req.Requester, nil)
		return Outcome{}, o.abort(ctx, req, err)
	}

	var selections map[uint64]int
	switch req.Kind {
	case KindPack:
		selections, err = o.selectPackDesigns(ctx, req, words, items)
	default:
		selections, err = o.deckDesigns(ctx, req)
	}
	if err != nil {
		return Outcome{}, o.abort(ctx, req, err)
	}

	minted, royaltyItems, err := o.mint(ctx, req.Requester, selections)
	if err != nil {
		return Outcome{}, o.abort(ctx, req, err)
	}

	if _, err := o.emission.Commit(ctx, uint64(items)); err != nil {
		o.burnMinted(ctx, minted)
		return Outcome{}, o.abort(ctx, req, err)
	}

	// The terminal state lands before royalties: once the counter moved, a
	// retried delivery must hit the replay guard, never a second mint.
	now := o.clock().UTC()
	if err := o.requests.ResolveOpeningRequest(ctx, req.ID, StateFulfilled, now); err != nil {
		o.burnMinted(ctx, minted)
		_, _ = o.emission.Release(ctx, uint64(items))
		return Outcome{}, err
	}
	req.State = StateFulfilled
	req.ResolvedAt = &now

	payouts, err := o.royalties.Distribute(ctx, royaltyItems, req.Price)
	if err != nil {
		return Outcome{}, err
	}
	if len(payouts) > 0 {
		_ = o.events.Emit(ctx, telemetry.KindRoyaltiesDistributed, req.Requester, map[string]string{
			"request_id": req.ID,
			"owners":     strconv.Itoa(len(payouts)),
		})
	}

	kind := telemetry.KindPackOpened
	if req.Kind == KindDeck {
		kind = telemetry.KindDeckOpened
	}
	_ = o.events.Emit(ctx, kind, req.Requester, map[string]string{
		"request_id": req.ID,
		"items":      strconv.Itoa(items),
	})

	return Outcome{Request: req, Minted: minted, Royalties: payouts}, nil
}

// Reclaim refunds an unfulfilled request after the fulfillment timeout and
// permanently blocks a late delivery for its id.
func (o *Orchestrator) Reclaim(ctx context.Context, requestID string) (payment.RefundResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	req, err := o.requests.OpeningRequest(ctx, requestID)
	if err != nil {
		return payment.RefundResult{}, ErrRequestUnknown
	}
	switch req.State {
	case StateFulfilled:
		return payment.RefundResult{}, ErrAlreadyFulfilled
	case StateExpired, StateRefunded:
		return payment.RefundResult{}, ErrRequestExpired
	}

	now := o.clock()
	deadline := req.RequestedAt.Add(o.cfg.VRFTimeout)
	if now.Before(deadline) {
		return payment.RefundResult{}, apperrors.WithMetadata(apperrors.CodeRequestNotExpired, "request has not expired yet", map[string]string{
			"expires_at": deadline.UTC().Format(time.RFC3339),
		})
	}

	// Mark terminal before paying out so a concurrent late fulfillment can
	// never race the refund.
	if err := o.requests.ResolveOpeningRequest(ctx, req.ID, StateExpired, now.UTC()); err != nil {
		return payment.RefundResult{}, err
	}

	result, err := o.payments.Refund(ctx, req.Requester, req.Price)
	if err != nil {
		return payment.RefundResult{}, err
	}
	_ = o.events.Emit(ctx, telemetry.KindRequestReclaimed, req.Requester, map[string]string{
		"request_id": req.ID,
		"amount":     strconv.FormatInt(req.Price, 10),
	})
	return result, nil
}

// abort routes a failed fulfillment to the refund path: the payment was
// collected in the initiating transaction, so the refund issues from this
// one. The request terminates as refunded.
func (o *Orchestrator) abort(ctx context.Context, req Request, cause error) error {
	if err := o.requests.ResolveOpeningRequest(ctx, req.ID, StateRefunded, o.clock().UTC()); err != nil {
		return err
	}
	if _, err := o.payments.Refund(ctx, req.Requester, req.Price); err != nil {
		return err
	}
	_ = o.events.Emit(ctx, telemetry.KindOpeningAborted, req.Requester, map[string]string{
		"request_id": req.ID,
		"reason":     string(apperrors.GetCode(cause)),
	})
	return cause
}

func (o *Orchestrator) itemCount(ctx context.Context, req Request) int {
	if req.Kind == KindPack {
		return req.Packs * o.cfg.PackSize
	}
	deck, err := o.catalog.Deck(ctx, req.DeckName)
	if err != nil {
		return 0
	}
	return deck.Size()
}

// selectPackDesigns maps random words to design picks, one word per card.
func (o *Orchestrator) selectPackDesigns(ctx context.Context, req Request, words []uint64, items int) (map[uint64]int, error) {
	entries, err := o.catalog.CatalogEntries(ctx)
	if err != nil {
		return nil, err
	}
	pool := rarity.NewPool(entries)
	if !pool.Eligible() {
		// Checked before consuming any randomness.
		return nil, rarity.ErrNoEligibleDesigns
	}

	expanded, err := random.ExpandWords(words, items)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRandomWordsMissing, "oracle delivered no random words", err)
	}

	selections := make(map[uint64]int)
	for _, word := range expanded {
		designID, err := pool.Select(word)
		if err != nil {
			return nil, err
		}
		selections[designID]++
	}
	return selections, nil
}

// deckDesigns resolves a deck's fixed composition, validating every slot
// before any mint.
func (o *Orchestrator) deckDesigns(ctx context.Context, req Request) (map[uint64]int, error) {
	deck, err := o.catalog.Deck(ctx, req.DeckName)
	if err != nil {
		return nil, err
	}

	selections := make(map[uint64]int, len(deck.Slots))
	for _, slot := range deck.Slots {
		entry, err := o.catalog.CatalogEntry(ctx, slot.DesignID)
		if err != nil {
			return nil, apperrors.WithMetadata(apperrors.CodeDesignUnknown, "deck references unknown design", map[string]string{
				"design_id": strconv.FormatUint(slot.DesignID, 10),
			})
		}
		if entry.Removed {
			return nil, apperrors.New(apperrors.CodeDesignRemoved, "deck references removed design")
		}
		needed := uint64(selections[slot.DesignID] + slot.Quantity)
		if entry.MaxSupply != 0 && entry.CurrentSupply+needed > entry.MaxSupply {
			return nil, apperrors.New(apperrors.CodeSupplyExhausted, "deck design supply exhausted")
		}
		selections[slot.DesignID] += slot.Quantity
	}
	return selections, nil
}

// mint creates all instances for the fulfillment. Selections were fully
// validated first, so a failure here is a storage fault and aborts the
// whole resume: instances minted for earlier designs are burned back, so
// no partial bundle ever survives.
func (o *Orchestrator) mint(ctx context.Context, owner string, selections map[uint64]int) ([]MintedCard, []royalty.Item, error) {
	designIDs := make([]uint64, 0, len(selections))
	for designID := range selections {
		designIDs = append(designIDs, designID)
	}
	sort.Slice(designIDs, func(i, j int) bool { return designIDs[i] < designIDs[j] })

	minted := make([]MintedCard, 0, len(designIDs))
	var royaltyItems []royalty.Item
	for _, designID := range designIDs {
		ledger, err := o.registry.Ledger(ctx, designID)
		if err != nil {
			o.burnMinted(ctx, minted)
			return nil, nil, err
		}
		designOwner, err := ledger.Owner(ctx)
		if err != nil {
			o.burnMinted(ctx, minted)
			return nil, nil, err
		}
		ids, err := ledger.Mint(ctx, owner, selections[designID])
		if err != nil {
			o.burnMinted(ctx, minted)
			return nil, nil, err
		}
		minted = append(minted, MintedCard{DesignID: designID, InstanceIDs: ids})
		for range ids {
			royaltyItems = append(royaltyItems, royalty.Item{DesignID: designID, Owner: designOwner})
		}
	}
	return minted, royaltyItems, nil
}

// burnMinted destroys the instances a failed resume already created. Burn
// faults are swallowed: the unwind must not block the caller's refund, and
// any instance left behind is unreachable through a terminal request.
func (o *Orchestrator) burnMinted(ctx context.Context, minted []MintedCard) {
	for _, card := range minted {
		ledger, err := o.registry.Ledger(ctx, card.DesignID)
		if err != nil {
			continue
		}
		_ = ledger.Burn(ctx, card.InstanceIDs)
	}
}
