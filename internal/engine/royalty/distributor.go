// Package royalty pays design owners their share of each sale.
package royalty

import (
	"context"
	"sort"

	"github.com/louisbranch/packworks/internal/engine/payment"
)

// DefaultBps is the default royalty fraction in basis points (2.5%).
const DefaultBps = 250

// Item is one minted card in a sale, attributed to its design owner.
type Item struct {
	DesignID uint64
	Owner    string
}

// Payout is the royalty delivered to one distinct owner.
type Payout struct {
	Owner  string
	Amount int64
	// Credited is true when the direct transfer failed and the amount was
	// stored as withdrawable credit instead.
	Credited bool
}

// Distributor computes and pays fixed-percentage royalties.
//
// The royalty pool is bps of the sale amount. Every minted item contributes
// an equal slice, slices are summed per distinct owner, and each owner is
// paid once. Delivery failures degrade to credits exactly like refunds.
type Distributor struct {
	bps   int64
	guard *payment.Guard
}

// NewDistributor creates a distributor paying bps basis points of each sale.
func NewDistributor(bps int64, guard *payment.Guard) *Distributor {
	if bps < 0 {
		bps = 0
	}
	return &Distributor{bps: bps, guard: guard}
}

// Distribute pays royalties for a completed sale and returns the payouts in
// deterministic (owner-sorted) order.
func (d *Distributor) Distribute(ctx context.Context, items []Item, totalSaleAmount int64) ([]Payout, error) {
	if len(items) == 0 || totalSaleAmount <= 0 || d.bps == 0 {
		return nil, nil
	}

	pool := totalSaleAmount * d.bps / 10_000
	if pool <= 0 {
		return nil, nil
	}

	counts := make(map[string]int64, len(items))
	for _, item := range items {
		counts[item.Owner]++
	}

	owners := make([]string, 0, len(counts))
	for owner := range counts {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	total := int64(len(items))
	payouts := make([]Payout, 0, len(owners))
	for _, owner := range owners {
		// Floor division: sub-unit remainders stay with the house.
		amount := pool * counts[owner] / total
		if amount <= 0 {
			continue
		}

		result, err := d.guard.Refund(ctx, owner, amount)
		if err != nil {
			return payouts, err
		}
		payouts = append(payouts, Payout{
			Owner:    owner,
			Amount:   amount,
			Credited: result.Credited,
		})
	}
	return payouts, nil
}
