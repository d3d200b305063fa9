// Package catalogfile loads card catalog and deck definitions from YAML
// files and imports them into a catalog store.
package catalogfile

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/packworks/internal/engine/catalog"
	"github.com/louisbranch/packworks/internal/storage"
)

// File is the top-level shape of a catalog definition file.
type File struct {
	PackPrice int64  `yaml:"pack_price"`
	Cards     []Card `yaml:"cards"`
	Decks     []Deck `yaml:"decks"`
}

// Card defines one card design.
type Card struct {
	DesignID  uint64 `yaml:"design_id"`
	Name      string `yaml:"name"`
	Owner     string `yaml:"owner"`
	Tier      string `yaml:"tier"`
	Weight    uint64 `yaml:"weight"`
	MaxSupply uint64 `yaml:"max_supply"`
	URI       string `yaml:"uri"`
}

// Deck defines one fixed-composition deck.
type Deck struct {
	Name  string `yaml:"name"`
	Price int64  `yaml:"price"`
	Slots []Slot `yaml:"slots"`
}

// Slot is one deck slot.
type Slot struct {
	DesignID uint64 `yaml:"design_id"`
	Quantity int    `yaml:"quantity"`
}

// Load reads and validates a catalog definition file.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read catalog file: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return File{}, fmt.Errorf("parse catalog file: %w", err)
	}
	if err := file.Validate(); err != nil {
		return File{}, err
	}
	return file, nil
}

// Validate resolves tiers and checks every definition before import.
func (f File) Validate() error {
	if len(f.Cards) == 0 {
		return fmt.Errorf("catalog file defines no cards")
	}

	designs := make(map[uint64]bool, len(f.Cards))
	for _, card := range f.Cards {
		entry, err := card.entry()
		if err != nil {
			return err
		}
		if designs[entry.DesignID] {
			return fmt.Errorf("design id %d defined twice", entry.DesignID)
		}
		designs[entry.DesignID] = true
	}

	names := make(map[string]bool, len(f.Decks))
	for _, deck := range f.Decks {
		if names[deck.Name] {
			return fmt.Errorf("deck %q defined twice", deck.Name)
		}
		names[deck.Name] = true
		if err := deck.deck().Validate(); err != nil {
			return fmt.Errorf("deck %q: %w", deck.Name, err)
		}
		for _, slot := range deck.Slots {
			if !designs[slot.DesignID] {
				return fmt.Errorf("deck %q references unknown design %d", deck.Name, slot.DesignID)
			}
		}
	}
	return nil
}

func (c Card) entry() (catalog.Entry, error) {
	tier, ok := catalog.ParseTier(c.Tier)
	if !ok {
		return catalog.Entry{}, fmt.Errorf("card %d: unknown tier %q", c.DesignID, c.Tier)
	}
	entry := catalog.Entry{
		DesignID:  c.DesignID,
		Name:      c.Name,
		Owner:     c.Owner,
		Tier:      tier,
		Weight:    c.Weight,
		MaxSupply: c.MaxSupply,
		URI:       c.URI,
	}
	if err := entry.Validate(); err != nil {
		return catalog.Entry{}, fmt.Errorf("card %d: %w", c.DesignID, err)
	}
	return entry, nil
}

func (d Deck) deck() catalog.Deck {
	deck := catalog.Deck{Name: d.Name, Price: d.Price}
	for _, slot := range d.Slots {
		deck.Slots = append(deck.Slots, catalog.Slot{DesignID: slot.DesignID, Quantity: slot.Quantity})
	}
	return deck
}

// Import writes the file's definitions into the store. Existing designs and
// decks with matching ids are replaced.
func (f File) Import(ctx context.Context, store storage.CatalogStore) error {
	for _, card := range f.Cards {
		entry, err := card.entry()
		if err != nil {
			return err
		}
		if err := store.PutCatalogEntry(ctx, entry); err != nil {
			return fmt.Errorf("import card %d: %w", entry.DesignID, err)
		}
	}
	for _, deck := range f.Decks {
		if err := store.PutDeck(ctx, deck.deck()); err != nil {
			return fmt.Errorf("import deck %q: %w", deck.Name, err)
		}
	}
	if f.PackPrice > 0 {
		if err := store.SetPackPrice(ctx, f.PackPrice); err != nil {
			return fmt.Errorf("import pack price: %w", err)
		}
	}
	return nil
}
