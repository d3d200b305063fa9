package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/packworks/internal/engine/catalog"
	"github.com/louisbranch/packworks/internal/engine/opening"
	"github.com/louisbranch/packworks/internal/engine/security"
	"github.com/louisbranch/packworks/internal/storage"
	"github.com/louisbranch/packworks/internal/telemetry"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "packworks.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestCatalogEntryRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	entry := catalog.Entry{
		DesignID:  7,
		Name:      "Ember Drake",
		Owner:     "artist-1",
		Tier:      catalog.TierRare,
		Weight:    120,
		MaxSupply: 500,
		URI:       "ipfs://ember-drake",
		CreatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := store.PutCatalogEntry(ctx, entry); err != nil {
		t.Fatalf("put catalog entry: %v", err)
	}

	got, err := store.CatalogEntry(ctx, 7)
	if err != nil {
		t.Fatalf("get catalog entry: %v", err)
	}
	if got.Name != entry.Name || got.Tier != entry.Tier || got.Weight != entry.Weight {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.MaxSupply != 500 || got.CurrentSupply != 0 || got.Removed {
		t.Fatalf("unexpected supply state: %+v", got)
	}
}

func TestCatalogEntryNotFound(t *testing.T) {
	store := openTempStore(t)
	if _, err := store.CatalogEntry(context.Background(), 999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveCatalogEntrySoftRemoves(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	entry := catalog.Entry{DesignID: 1, Name: "Card", Owner: "artist", Tier: catalog.TierCommon}
	if err := store.PutCatalogEntry(ctx, entry); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.RemoveCatalogEntry(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	got, err := store.CatalogEntry(ctx, 1)
	if err != nil {
		t.Fatalf("get after remove: %v", err)
	}
	if !got.Removed {
		t.Fatal("expected entry marked removed")
	}
	if err := store.RemoveCatalogEntry(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown design, got %v", err)
	}
}

func TestDeckRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	for _, entry := range []catalog.Entry{
		{DesignID: 1, Name: "One", Owner: "a", Tier: catalog.TierCommon},
		{DesignID: 2, Name: "Two", Owner: "b", Tier: catalog.TierRare},
	} {
		if err := store.PutCatalogEntry(ctx, entry); err != nil {
			t.Fatalf("put entry: %v", err)
		}
	}

	deck := catalog.Deck{
		Name:  "starter",
		Slots: []catalog.Slot{{DesignID: 1, Quantity: 3}, {DesignID: 2, Quantity: 1}},
		Price: 15_000,
	}
	if err := store.PutDeck(ctx, deck); err != nil {
		t.Fatalf("put deck: %v", err)
	}

	got, err := store.Deck(ctx, "starter")
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if len(got.Slots) != 2 || got.Slots[0].Quantity != 3 || got.Slots[1].DesignID != 2 {
		t.Fatalf("unexpected slots: %+v", got.Slots)
	}
	if got.Price != 15_000 {
		t.Fatalf("expected price 15000, got %d", got.Price)
	}

	if _, err := store.Deck(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing deck, got %v", err)
	}
}

func TestPackPriceDefaultsToZero(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	price, err := store.PackPrice(ctx)
	if err != nil {
		t.Fatalf("read pack price: %v", err)
	}
	if price != 0 {
		t.Fatalf("expected default price 0, got %d", price)
	}

	if err := store.SetPackPrice(ctx, 20_000); err != nil {
		t.Fatalf("set pack price: %v", err)
	}
	price, err = store.PackPrice(ctx)
	if err != nil {
		t.Fatalf("read pack price: %v", err)
	}
	if price != 20_000 {
		t.Fatalf("expected price 20000, got %d", price)
	}
}

func TestAccountCollectAndTransfer(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.Deposit(ctx, "buyer", 100_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := store.Collect(ctx, "buyer", 30_000); err != nil {
		t.Fatalf("collect: %v", err)
	}

	buyer, err := store.Account(ctx, "buyer")
	if err != nil {
		t.Fatalf("get buyer: %v", err)
	}
	if buyer.Balance != 70_000 {
		t.Fatalf("expected buyer balance 70000, got %d", buyer.Balance)
	}
	house, err := store.Account(ctx, houseAddress)
	if err != nil {
		t.Fatalf("get house: %v", err)
	}
	if house.Balance != 30_000 {
		t.Fatalf("expected house balance 30000, got %d", house.Balance)
	}

	if err := store.Transfer(ctx, "buyer", 10_000); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	buyer, _ = store.Account(ctx, "buyer")
	if buyer.Balance != 80_000 {
		t.Fatalf("expected buyer balance 80000 after refund, got %d", buyer.Balance)
	}
}

func TestCollectRejectsShortBalance(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.Deposit(ctx, "buyer", 5_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := store.Collect(ctx, "buyer", 30_000); err == nil {
		t.Fatal("expected collect to fail on short balance")
	}
	buyer, err := store.Account(ctx, "buyer")
	if err != nil {
		t.Fatalf("get buyer: %v", err)
	}
	if buyer.Balance != 5_000 {
		t.Fatalf("failed collect must not move funds, balance %d", buyer.Balance)
	}
}

func TestTransferRejectsFrozenAccount(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.Deposit(ctx, houseAddress, 50_000); err != nil {
		t.Fatalf("fund house: %v", err)
	}
	if err := store.SetAccountFrozen(ctx, "victim", true); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if err := store.Transfer(ctx, "victim", 10_000); err == nil {
		t.Fatal("expected transfer to frozen account to fail")
	}
}

func TestCreditAccumulatesAndDrains(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.AddCredit(ctx, "buyer", 5_000); err != nil {
		t.Fatalf("add credit: %v", err)
	}
	if err := store.AddCredit(ctx, "buyer", 2_500); err != nil {
		t.Fatalf("add credit: %v", err)
	}

	amount, err := store.Credit(ctx, "buyer")
	if err != nil {
		t.Fatalf("read credit: %v", err)
	}
	if amount != 7_500 {
		t.Fatalf("expected credit 7500, got %d", amount)
	}

	taken, err := store.TakeCredit(ctx, "buyer")
	if err != nil {
		t.Fatalf("take credit: %v", err)
	}
	if taken != 7_500 {
		t.Fatalf("expected to take 7500, got %d", taken)
	}
	amount, _ = store.Credit(ctx, "buyer")
	if amount != 0 {
		t.Fatalf("expected credit drained, got %d", amount)
	}
}

func TestOpeningRequestLifecycle(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	requestedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := opening.Request{
		ID:          "vrf-1",
		Requester:   "buyer",
		Kind:        opening.KindPack,
		Packs:       2,
		Price:       40_000,
		AmountPaid:  50_000,
		RequestedAt: requestedAt,
		State:       opening.StateRequested,
	}
	if err := store.PutOpeningRequest(ctx, req); err != nil {
		t.Fatalf("put request: %v", err)
	}

	got, err := store.OpeningRequest(ctx, "vrf-1")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if got.State != opening.StateRequested || got.Packs != 2 || got.ResolvedAt != nil {
		t.Fatalf("unexpected request: %+v", got)
	}
	if !got.RequestedAt.Equal(requestedAt) {
		t.Fatalf("expected requested_at %v, got %v", requestedAt, got.RequestedAt)
	}

	resolvedAt := requestedAt.Add(5 * time.Minute)
	if err := store.ResolveOpeningRequest(ctx, "vrf-1", opening.StateFulfilled, resolvedAt); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, _ = store.OpeningRequest(ctx, "vrf-1")
	if got.State != opening.StateFulfilled || got.ResolvedAt == nil {
		t.Fatalf("expected fulfilled with resolved_at, got %+v", got)
	}

	pending, err := store.OpeningRequestsByState(ctx, opening.StateRequested)
	if err != nil {
		t.Fatalf("list by state: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending requests, got %d", len(pending))
	}

	if _, err := store.OpeningRequest(ctx, "vrf-404"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpeningRequestKindSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packworks.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	requestedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, req := range []opening.Request{
		{ID: "vrf-pack", Requester: "buyer", Kind: opening.KindPack, Packs: 1, Price: 20_000, AmountPaid: 20_000, RequestedAt: requestedAt, State: opening.StateRequested},
		{ID: "vrf-deck", Requester: "buyer", Kind: opening.KindDeck, DeckName: "starter", Packs: 1, Price: 15_000, AmountPaid: 15_000, RequestedAt: requestedAt, State: opening.StateRequested},
	} {
		if err := store.PutOpeningRequest(ctx, req); err != nil {
			t.Fatalf("put request %s: %v", req.ID, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	pack, err := reopened.OpeningRequest(ctx, "vrf-pack")
	if err != nil {
		t.Fatalf("get pack request: %v", err)
	}
	if pack.Kind != opening.KindPack {
		t.Fatalf("expected pack kind after reopen, got %v", pack.Kind)
	}
	deck, err := reopened.OpeningRequest(ctx, "vrf-deck")
	if err != nil {
		t.Fatalf("get deck request: %v", err)
	}
	if deck.Kind != opening.KindDeck || deck.DeckName != "starter" {
		t.Fatalf("expected deck kind after reopen, got %+v", deck)
	}
}

func TestEmissionCounterAdvances(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.SetEmissionCap(ctx, 1000); err != nil {
		t.Fatalf("set cap: %v", err)
	}
	counter, err := store.AdvanceEmission(ctx, 15)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if counter.TotalMinted != 15 || counter.Cap != 1000 {
		t.Fatalf("unexpected counter: %+v", counter)
	}
	counter, _ = store.EmissionCounter(ctx)
	if counter.Remaining() != 985 {
		t.Fatalf("expected 985 remaining, got %d", counter.Remaining())
	}

	counter, err = store.ReleaseEmission(ctx, 15)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if counter.TotalMinted != 0 || counter.Remaining() != 1000 {
		t.Fatalf("expected released counter, got %+v", counter)
	}
	counter, _ = store.ReleaseEmission(ctx, 50)
	if counter.TotalMinted != 0 {
		t.Fatalf("release must floor at zero, got %d", counter.TotalMinted)
	}
}

func TestSecurityFlagsRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	flags, err := store.SecurityFlags(ctx)
	if err != nil {
		t.Fatalf("read flags: %v", err)
	}
	if flags != (security.Flags{}) {
		t.Fatalf("expected zero flags, got %+v", flags)
	}

	flags.EmergencyPause = true
	flags.CatalogLocked = true
	if err := store.SetSecurityFlags(ctx, flags); err != nil {
		t.Fatalf("set flags: %v", err)
	}
	got, _ := store.SecurityFlags(ctx)
	if !got.EmergencyPause || !got.CatalogLocked || got.MintingLocked {
		t.Fatalf("unexpected flags: %+v", got)
	}
}

func TestOpenAttemptRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	at, count, err := store.OpenAttempt(ctx, "buyer")
	if err != nil {
		t.Fatalf("read attempt: %v", err)
	}
	if !at.IsZero() || count != 0 {
		t.Fatalf("expected zero attempt for new address, got %v %d", at, count)
	}

	recorded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.RecordOpenAttempt(ctx, "buyer", recorded, 3); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	at, count, err = store.OpenAttempt(ctx, "buyer")
	if err != nil {
		t.Fatalf("read attempt: %v", err)
	}
	if !at.Equal(recorded) || count != 3 {
		t.Fatalf("unexpected attempt: %v %d", at, count)
	}
}

func TestSecurityEventJournal(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		evt := telemetry.SecurityEvent{
			Kind:      telemetry.KindPackRequested,
			Actor:     "buyer",
			Timestamp: time.Date(2026, 3, 1, 12, i, 0, 0, time.UTC),
			Metadata:  map[string]string{"request_id": "vrf-1"},
		}
		seq, err := store.AppendSecurityEvent(ctx, evt)
		if err != nil {
			t.Fatalf("append event: %v", err)
		}
		if seq != int64(i+1) {
			t.Fatalf("expected assigned seq %d, got %d", i+1, seq)
		}
	}

	events, err := store.SecurityEvents(ctx, 0, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].ID >= events[1].ID {
		t.Fatal("expected ascending sequence numbers")
	}
	if events[0].Metadata["request_id"] != "vrf-1" {
		t.Fatalf("expected metadata preserved, got %v", events[0].Metadata)
	}

	page, err := store.SecurityEvents(ctx, events[1].ID, 10)
	if err != nil {
		t.Fatalf("page events: %v", err)
	}
	if len(page) != 1 || page[0].ID != events[2].ID {
		t.Fatalf("expected one event after seq %d, got %d", events[1].ID, len(page))
	}
}

func TestLedgerMintAdvancesSupply(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	entry := catalog.Entry{DesignID: 9, Name: "Card", Owner: "artist", Tier: catalog.TierCommon, MaxSupply: 3}
	if err := store.PutCatalogEntry(ctx, entry); err != nil {
		t.Fatalf("put entry: %v", err)
	}

	ledger, err := store.Ledger(ctx, 9)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	ids, err := ledger.Mint(ctx, "buyer", 2)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Fatalf("expected 2 distinct instance ids, got %v", ids)
	}

	current, err := ledger.CurrentSupply(ctx)
	if err != nil {
		t.Fatalf("current supply: %v", err)
	}
	if current != 2 {
		t.Fatalf("expected current supply 2, got %d", current)
	}

	if _, err := ledger.Mint(ctx, "buyer", 2); err == nil {
		t.Fatal("expected mint past max supply to fail")
	}
	current, _ = ledger.CurrentSupply(ctx)
	if current != 2 {
		t.Fatalf("failed mint must not advance supply, got %d", current)
	}

	owner, err := ledger.Owner(ctx)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if owner != "artist" {
		t.Fatalf("expected owner artist, got %s", owner)
	}

	if _, err := store.Ledger(ctx, 404); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown design, got %v", err)
	}
}

func TestLedgerBurnReleasesSupply(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	entry := catalog.Entry{DesignID: 4, Name: "Card", Owner: "artist", Tier: catalog.TierCommon, MaxSupply: 2}
	if err := store.PutCatalogEntry(ctx, entry); err != nil {
		t.Fatalf("put entry: %v", err)
	}
	ledger, err := store.Ledger(ctx, 4)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	ids, err := ledger.Mint(ctx, "buyer", 2)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := ledger.Burn(ctx, ids); err != nil {
		t.Fatalf("burn: %v", err)
	}
	current, err := ledger.CurrentSupply(ctx)
	if err != nil {
		t.Fatalf("current supply: %v", err)
	}
	if current != 0 {
		t.Fatalf("expected supply released to 0, got %d", current)
	}

	// The released budget is mintable again.
	if _, err := ledger.Mint(ctx, "buyer", 2); err != nil {
		t.Fatalf("mint after burn: %v", err)
	}

	// Burning unknown ids is a no-op, never an underflow.
	if err := ledger.Burn(ctx, []uint64{9999}); err != nil {
		t.Fatalf("burn unknown id: %v", err)
	}
	current, _ = ledger.CurrentSupply(ctx)
	if current != 2 {
		t.Fatalf("expected supply unchanged at 2, got %d", current)
	}
}
