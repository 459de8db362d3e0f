package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is the in-memory Store used by tests and local runs without
// a database. Semantics mirror the Mongo implementation.
type MemStore struct {
	mu   sync.RWMutex
	byID map[string]Order
	now  func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{byID: map[string]Order{}, now: time.Now}
}

func (s *MemStore) Create(_ context.Context, o *Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	s.byID[o.ID] = cloneOrder(*o)
	return o.ID, nil
}

func (s *MemStore) Get(_ context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneOrder(o)
	return &c, nil
}

func (s *MemStore) Find(_ context.Context, f Filter) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, 0, len(s.byID))
	for _, o := range s.byID {
		switch {
		case f.ID != "" && o.ID != f.ID:
		case f.Phone != "" && !PhoneMatches(o.Customer.Phone, f.Phone):
		default:
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			o.Status = v.(Status)
		case "total_cents":
			o.TotalCents = v.(int)
		case "proof_of_payment":
			p := v.(ProofOfPayment)
			o.ProofOfPayment = &p
		case "delivery_details":
			d := v.(DeliveryDetails)
			o.DeliveryDetails = &d
		}
	}
	o.UpdatedAt = s.now()
	s.byID[id] = o
	return nil
}

func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func cloneOrder(o Order) Order {
	o.Items = append([]LineItem(nil), o.Items...)
	if o.DeliveryDetails != nil {
		d := *o.DeliveryDetails
		o.DeliveryDetails = &d
	}
	if o.ProofOfPayment != nil {
		p := *o.ProofOfPayment
		o.ProofOfPayment = &p
	}
	return o
}
