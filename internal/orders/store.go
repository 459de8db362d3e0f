package orders

import (
	"context"
	"strings"
)

// Filter narrows a Find. Zero value means all orders (the privileged
// staff path). Phone matching is a digits-only substring check, which
// can over-match on short numbers; it is a deliberately loose lookup
// heuristic, not a security boundary.
type Filter struct {
	ID    string
	Phone string
}

func (f Filter) Empty() bool { return f.ID == "" && f.Phone == "" }

// Store is the persistence abstraction over the document store.
// Implementations hold no business rules; Find returns newest first.
type Store interface {
	Create(ctx context.Context, o *Order) (string, error)
	Get(ctx context.Context, id string) (*Order, error)
	Find(ctx context.Context, f Filter) ([]Order, error)
	// UpdateFields merges the given document fields all-or-nothing and
	// always refreshes updated_at.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

// NormalizePhone strips everything but digits so "(11) 98888-7777" and
// "11988887777" compare equal.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneMatches reports whether the normalized query is a substring of
// the normalized candidate. An empty query matches nothing.
func PhoneMatches(candidate, query string) bool {
	q := NormalizePhone(query)
	if q == "" {
		return false
	}
	return strings.Contains(NormalizePhone(candidate), q)
}
