package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Snapshot is the read-only view of the menu the pricing engine works
// against. It is loaded once (or swapped wholesale); nothing in this
// package mutates it after load.
type Snapshot struct {
	Categories map[string]Category `yaml:"categories"`
}

type Category struct {
	AllowHalfAndHalf bool `yaml:"allow_half_and_half"`

	// Border surcharges are two-tier: LargestSize pays the large
	// surcharge, every other size the regular one. Empty Borders means
	// the category offers no border options at all.
	Borders                   []string `yaml:"borders"`
	LargestSize               string   `yaml:"largest_size"`
	BorderSurchargeLargeCents int      `yaml:"border_surcharge_large_cents"`
	BorderSurchargeCents      int      `yaml:"border_surcharge_cents"`

	ExtraPriceCents map[string]int  `yaml:"extra_price_cents"`
	Items           map[string]Item `yaml:"items"`
}

type Item struct {
	// PriceCents is the flat price used when no size is selected or the
	// item has no per-size table.
	PriceCents     int            `yaml:"price_cents"`
	SizePriceCents map[string]int `yaml:"size_price_cents"`
}

func (c Category) HasBorder(name string) bool {
	for _, b := range c.Borders {
		if b == name {
			return true
		}
	}
	return false
}

func (s *Snapshot) Category(name string) (Category, bool) {
	c, ok := s.Categories[name]
	return c, ok
}

func (s *Snapshot) Item(category, name string) (Item, bool) {
	c, ok := s.Categories[category]
	if !ok {
		return Item{}, false
	}
	it, ok := c.Items[name]
	return it, ok
}

func Load(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var s Snapshot
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &s, nil
}
