package catalog

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
)

// Slot is one (design, quantity) pair in a deck composition.
type Slot struct {
	DesignID uint64
	Quantity int
}

// Deck is a fixed-composition bundle sold at a fixed price.
//
// Composition is immutable after creation; decks are never deleted, only
// globally locked together with the rest of the catalog.
type Deck struct {
	Name      string
	Slots     []Slot
	Price     int64
	CreatedAt time.Time
}

// Size returns the total number of cards the deck mints.
func (d Deck) Size() int {
	total := 0
	for _, slot := range d.Slots {
		total += slot.Quantity
	}
	return total
}

// Validate checks deck fields before the deck joins the catalog.
func (d Deck) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrDeckNameEmpty
	}
	if len(d.Slots) == 0 {
		return ErrDeckEmpty
	}
	for _, slot := range d.Slots {
		if slot.Quantity <= 0 {
			return ErrDeckSlotInvalid
		}
	}
	if d.Price < 0 {
		return ErrPriceInvalid
	}
	return nil
}

// ErrDeckNameEmpty indicates a missing deck name.
var ErrDeckNameEmpty = apperrors.New(apperrors.CodeDeckNameEmpty, "deck name is required")

// ErrDeckEmpty indicates a deck with no card slots.
var ErrDeckEmpty = apperrors.New(apperrors.CodeDeckEmpty, "deck requires at least one card slot")

// ErrDeckSlotInvalid indicates a slot with a non-positive quantity.
var ErrDeckSlotInvalid = apperrors.New(apperrors.CodeDeckSlotInvalid, "deck slot quantity must be positive")

// ErrPriceInvalid indicates a negative price.
var ErrPriceInvalid = apperrors.New(apperrors.CodePriceInvalid, "price must not be negative")
