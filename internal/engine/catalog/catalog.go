// Package catalog defines the card catalog consumed by the opening engine.
//
// The engine never owns per-design mint bookkeeping; it consults an
// immutable list of catalog entries plus each entry's removed bit, and
// mints through the Ledger capability registered for a design.
package catalog

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
)

// Tier describes the rarity tier of a card design.
type Tier int

const (
	// TierUnspecified represents an invalid tier value.
	TierUnspecified Tier = iota
	// TierCommon is the most frequent tier.
	TierCommon
	// TierUncommon sits between common and rare.
	TierUncommon
	// TierRare is the standard chase tier.
	TierRare
	// TierEpic is rarer than rare.
	TierEpic
	// TierLegendary is the rarest open-ended tier.
	TierLegendary
	// TierSerialized is a numbered, supply-capped tier.
	TierSerialized
)

// String returns the lowercase label for the tier.
func (t Tier) String() string {
	switch t {
	case TierCommon:
		return "common"
	case TierUncommon:
		return "uncommon"
	case TierRare:
		return "rare"
	case TierEpic:
		return "epic"
	case TierLegendary:
		return "legendary"
	case TierSerialized:
		return "serialized"
	default:
		return "unspecified"
	}
}

// ParseTier maps a label to a tier.
func ParseTier(label string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "common":
		return TierCommon, true
	case "uncommon":
		return TierUncommon, true
	case "rare":
		return TierRare, true
	case "epic":
		return TierEpic, true
	case "legendary":
		return TierLegendary, true
	case "serialized":
		return TierSerialized, true
	default:
		return TierUnspecified, false
	}
}

// DefaultWeight returns the selection weight assigned to a tier when a
// catalog entry does not carry an explicit weight.
func (t Tier) DefaultWeight() uint64 {
	switch t {
	case TierCommon:
		return 500
	case TierUncommon:
		return 250
	case TierRare:
		return 150
	case TierEpic:
		return 70
	case TierLegendary:
		return 25
	case TierSerialized:
		return 5
	default:
		return 0
	}
}

// Entry is a single card design in the catalog.
type Entry struct {
	DesignID uint64
	Name     string
	// Owner is the address royalties for this design are paid to.
	Owner string
	Tier  Tier
	// Weight is the selection weight; zero means the tier default applies.
	Weight uint64
	// MaxSupply caps minted instances; zero means unbounded.
	MaxSupply     uint64
	CurrentSupply uint64
	// Removed entries are never selected again; existing instances stay valid.
	Removed   bool
	URI       string
	CreatedAt time.Time
}

// EffectiveWeight returns the selection weight for the entry: zero when the
// entry is removed or sold out, the tier default when no explicit weight is
// set, and the explicit weight otherwise.
func (e Entry) EffectiveWeight() uint64 {
	if !e.Eligible() {
		return 0
	}
	if e.Weight > 0 {
		return e.Weight
	}
	return e.Tier.DefaultWeight()
}

// Eligible reports whether the entry can still be selected: not removed and
// not sold out. Sold-out limited designs drop out of the pool without being
// removed from the catalog.
func (e Entry) Eligible() bool {
	if e.Removed {
		return false
	}
	if e.MaxSupply != 0 && e.CurrentSupply >= e.MaxSupply {
		return false
	}
	return true
}

// Validate checks entry fields before the entry joins the catalog.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrCardNameEmpty
	}
	if strings.TrimSpace(e.Owner) == "" {
		return ErrCardOwnerEmpty
	}
	if e.Tier <= TierUnspecified || e.Tier > TierSerialized {
		return ErrCardTierInvalid
	}
	return nil
}

// Ledger is the per-design mint capability the engine consumes. The
// concrete bookkeeping (instance ids, burn, balances) lives outside the
// engine.
type Ledger interface {
	// Mint creates quantity new instances owned by owner and returns their ids.
	Mint(ctx context.Context, owner string, quantity int) ([]uint64, error)
	// Burn destroys the given instances and releases their supply. It
	// compensates a fulfillment that minted part of its bundle and then
	// failed.
	Burn(ctx context.Context, instanceIDs []uint64) error
	// CurrentSupply returns the number of minted instances.
	CurrentSupply(ctx context.Context) (uint64, error)
	// MaxSupply returns the supply cap, zero meaning unbounded.
	MaxSupply(ctx context.Context) (uint64, error)
	// Owner returns the royalty recipient for the design.
	Owner(ctx context.Context) (string, error)
}

// Registry resolves the ledger capability for a design. Lookups fail for
// designs that are not in the registry, and the caller must check the
// catalog's removed bit before minting.
type Registry interface {
	Ledger(ctx context.Context, designID uint64) (Ledger, error)
}

// ErrCardNameEmpty indicates a missing card name.
var ErrCardNameEmpty = apperrors.New(apperrors.CodeCardNameEmpty, "card name is required")

// ErrCardOwnerEmpty indicates a missing royalty owner address.
var ErrCardOwnerEmpty = apperrors.New(apperrors.CodeCardOwnerEmpty, "card owner address is required")

// ErrCardTierInvalid indicates a missing or invalid rarity tier.
var ErrCardTierInvalid = apperrors.New(apperrors.CodeCardTierInvalid, "card rarity tier is invalid")
