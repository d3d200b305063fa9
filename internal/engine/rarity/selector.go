// Package rarity implements rarity-weighted design selection.
package rarity

import (
	"sort"

	"github.com/louisbranch/packworks/internal/engine/catalog"
	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
)

// ErrNoEligibleDesigns indicates the live selection pool is empty.
var ErrNoEligibleDesigns = apperrors.New(apperrors.CodeNoEligibleDesigns, "no eligible designs in the catalog")

// Pool is a selection pool over a catalog snapshot.
//
// Selections advance the pool's view of per-design supply, so a limited
// design that sells out mid-bundle drops out of later picks instead of
// failing the whole bundle.
type Pool struct {
	entries []catalog.Entry
}

// NewPool builds a pool from a catalog snapshot. Entries are ordered by
// ascending design id so boundary ties resolve to the lower design id.
func NewPool(snapshot []catalog.Entry) *Pool {
	entries := make([]catalog.Entry, len(snapshot))
	copy(entries, snapshot)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DesignID < entries[j].DesignID
	})
	return &Pool{entries: entries}
}

// Eligible reports whether at least one design can still be selected.
// Callers must check this before consuming randomness.
func (p *Pool) Eligible() bool {
	for _, entry := range p.entries {
		if entry.EffectiveWeight() > 0 {
			return true
		}
	}
	return false
}

// Select maps a random word to a design id.
//
// The word is reduced modulo the total live weight and a linear scan finds
// the first entry whose cumulative weight exceeds the reduced value. The
// selected design's supply is advanced inside the pool.
func (p *Pool) Select(randomWord uint64) (uint64, error) {
	var total uint64
	for _, entry := range p.entries {
		total += entry.EffectiveWeight()
	}
	if total == 0 {
		return 0, ErrNoEligibleDesigns
	}

	reduced := randomWord % total
	var cumulative uint64
	for i, entry := range p.entries {
		weight := entry.EffectiveWeight()
		if weight == 0 {
			continue
		}
		cumulative += weight
		if cumulative > reduced {
			p.entries[i].CurrentSupply++
			return entry.DesignID, nil
		}
	}

	// Unreachable: total > 0 guarantees the scan terminates above.
	return 0, ErrNoEligibleDesigns
}

// Select is the pure single-shot form: one random word against one catalog
// snapshot.
func Select(randomWord uint64, snapshot []catalog.Entry) (uint64, error) {
	return NewPool(snapshot).Select(randomWord)
}
