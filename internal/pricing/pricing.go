// Package pricing computes authoritative prices from a catalog snapshot.
// Client-submitted prices are never consulted; the order service calls
// this on every create and overwrites whatever the client proposed.
package pricing

import (
	"fmt"

	"github.com/fornalha/pizzaria-orders/internal/catalog"
)

const BorderNone = "none"

// Selection identifies what the customer picked, prices excluded.
type Selection struct {
	Category string
	Name     string
	Size     string
	Border   string
	Extras   []string
	// Flavors holds exactly two names for a half-and-half item and is
	// empty otherwise.
	Flavors []string
}

// UnitPrice resolves one line item's unit price in cents:
// base (sized or flat, max of the two flavors for half-and-half)
// + border surcharge (two tiers by size) + selected extras.
func UnitPrice(snap *catalog.Snapshot, sel Selection) (int, error) {
	cat, ok := snap.Category(sel.Category)
	if !ok {
		return 0, fmt.Errorf("unknown category %q", sel.Category)
	}

	base, err := basePrice(snap, cat, sel)
	if err != nil {
		return 0, err
	}
	return base + borderSurcharge(cat, sel) + extrasTotal(cat, sel.Extras), nil
}

// LineTotal is the unit price times quantity.
func LineTotal(snap *catalog.Snapshot, sel Selection, quantity int) (int, error) {
	if quantity < 1 {
		return 0, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}
	unit, err := UnitPrice(snap, sel)
	if err != nil {
		return 0, err
	}
	return unit * quantity, nil
}

func basePrice(snap *catalog.Snapshot, cat catalog.Category, sel Selection) (int, error) {
	if len(sel.Flavors) == 0 {
		it, ok := cat.Items[sel.Name]
		if !ok {
			return 0, fmt.Errorf("unknown item %q in category %q", sel.Name, sel.Category)
		}
		return sizedPrice(it, sel.Size), nil
	}

	if len(sel.Flavors) != 2 {
		return 0, fmt.Errorf("half-and-half needs exactly 2 flavors, got %d", len(sel.Flavors))
	}
	if !cat.AllowHalfAndHalf {
		return 0, fmt.Errorf("category %q does not allow half-and-half", sel.Category)
	}

	// The item always prices at the costlier flavor, not the average.
	best := 0
	for _, flavor := range sel.Flavors {
		it, ok := cat.Items[flavor]
		if !ok {
			return 0, fmt.Errorf("unknown flavor %q in category %q", flavor, sel.Category)
		}
		if p := sizedPrice(it, sel.Size); p > best {
			best = p
		}
	}
	return best, nil
}

func sizedPrice(it catalog.Item, size string) int {
	if size != "" {
		if p, ok := it.SizePriceCents[size]; ok {
			return p
		}
	}
	return it.PriceCents
}

func borderSurcharge(cat catalog.Category, sel Selection) int {
	if sel.Border == "" || sel.Border == BorderNone || len(cat.Borders) == 0 {
		return 0
	}
	if sel.Size == cat.LargestSize {
		return cat.BorderSurchargeLargeCents
	}
	return cat.BorderSurchargeCents
}

// Unknown extra keys contribute zero rather than failing the whole
// order; the catalog is the limit of what can be charged.
func extrasTotal(cat catalog.Category, extras []string) int {
	sum := 0
	for _, e := range extras {
		sum += cat.ExtraPriceCents[e]
	}
	return sum
}
