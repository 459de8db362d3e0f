package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fornalha/pizzaria-orders/internal/catalog"
	"github.com/fornalha/pizzaria-orders/internal/pricing"
	"github.com/fornalha/pizzaria-orders/internal/schedule"
	"github.com/google/uuid"
)

// Publisher fans an event out to connected staff sessions.
type Publisher interface {
	Publish(ev Event)
}

// Notifier hands an event to the external push gateway. Best-effort:
// the order mutation has already committed when Notify runs, so
// implementations must never return the failure to the caller.
type Notifier interface {
	Notify(ev Event)
}

// Service orchestrates admissibility, pricing, persistence, and event
// publication. It performs no retries; callers own retry policy.
type Service struct {
	store    Store
	eval     *schedule.Evaluator
	hours    func() schedule.WeekConfig
	catalog  func() *catalog.Snapshot
	pub      Publisher
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store Store, eval *schedule.Evaluator, hours func() schedule.WeekConfig, cat func() *catalog.Snapshot, pub Publisher, notifier Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		eval:     eval,
		hours:    hours,
		catalog:  cat,
		pub:      pub,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// CreateOrderInput is what the client proposed. Numeric price fields
// are deliberately absent: identity and selections are parsed, prices
// are always recomputed server-side.
type CreateOrderInput struct {
	Items           []LineItemInput  `json:"items"`
	DeliveryMode    DeliveryMode     `json:"delivery_mode"`
	DeliveryDetails *DeliveryDetails `json:"delivery_details,omitempty"`
	Customer        Customer         `json:"customer"`
	PaymentMethod   PaymentMethod    `json:"payment_method"`
	ChangeForCents  int              `json:"change_for_cents,omitempty"`
}

type LineItemInput struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Quantity    int      `json:"quantity"`
	Size        string   `json:"size,omitempty"`
	Border      string   `json:"border,omitempty"`
	Extras      []string `json:"extras,omitempty"`
	Observation string   `json:"observation,omitempty"`
	Flavors     []string `json:"flavors,omitempty"`
}

// CreateOrder rejects while closed before touching the store, prices
// every line from the current catalog snapshot, persists, and emits
// new-order. Returns the id of the persisted order.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (string, error) {
	res := s.eval.Status(s.hours(), s.now())
	if !res.Open {
		return "", fmt.Errorf("%w: %s", ErrEstablishmentClosed, res.Reason)
	}

	if err := validateInput(in); err != nil {
		return "", err
	}

	snap := s.catalog()
	nowTS := s.now()
	o := Order{
		DeliveryMode:    in.DeliveryMode,
		DeliveryDetails: in.DeliveryDetails,
		Customer:        in.Customer,
		PaymentMethod:   in.PaymentMethod,
		Status:          StatusPending,
		CreatedAt:       nowTS,
		UpdatedAt:       nowTS,
	}
	if in.PaymentMethod == PaymentCash {
		o.ChangeForCents = in.ChangeForCents
	}

	total := 0
	for _, li := range in.Items {
		sel := pricing.Selection{
			Category: li.Category,
			Name:     li.Name,
			Size:     li.Size,
			Border:   li.Border,
			Extras:   li.Extras,
			Flavors:  li.Flavors,
		}
		unit, err := pricing.UnitPrice(snap, sel)
		if err != nil {
			return "", fmt.Errorf("%w: item %q: %v", ErrValidation, li.Name, err)
		}
		if li.Quantity < 1 {
			return "", fmt.Errorf("%w: item %q: quantity must be at least 1", ErrValidation, li.Name)
		}
		o.Items = append(o.Items, LineItem{
			Name:           li.Name,
			Category:       li.Category,
			Quantity:       li.Quantity,
			UnitPriceCents: unit,
			Size:           li.Size,
			Border:         li.Border,
			Extras:         li.Extras,
			Observation:    li.Observation,
			Flavors:        li.Flavors,
		})
		total += unit * li.Quantity
	}
	if in.DeliveryDetails != nil {
		total += in.DeliveryDetails.DeliveryFeeCents
	}
	o.TotalCents = total

	id, err := s.store.Create(ctx, &o)
	if err != nil {
		return "", s.persistErr("create order", err)
	}

	ev := s.newEvent(EventNewOrder, id, mustMarshal(NewOrderPayload{
		Status:     o.Status,
		TotalCents: o.TotalCents,
		Customer:   o.Customer.Name,
	}))
	s.pub.Publish(ev)
	s.notifier.Notify(ev)
	s.log.Info("order created", "order_id", id, "total_cents", total, "mode", in.DeliveryMode)
	return id, nil
}

// AdvanceStatus moves an order along the pending → preparing → ready →
// out_for_delivery → delivered chain, or to canceled from any
// non-terminal state. The push notification is fire-and-forget; its
// failure never rolls back the committed status change.
func (s *Service) AdvanceStatus(ctx context.Context, id string, target Status) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, target)
	}
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return s.fetchErr(id, err)
	}
	if !CanTransition(o.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}
	if err := s.store.UpdateFields(ctx, id, map[string]any{"status": target}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return s.persistErr("update status", err)
	}

	ev := s.newEvent(EventStatusChanged, id, mustMarshal(StatusChangedPayload{From: o.Status, To: target}))
	s.pub.Publish(ev)
	s.notifier.Notify(ev)
	s.log.Info("order status changed", "order_id", id, "from", o.Status, "to", target)
	return nil
}

// AttachProofOfPayment stores the uploaded artifact reference on a pix
// order. Re-upload overwrites; no history is kept.
func (s *Service) AttachProofOfPayment(ctx context.Context, id, url string) (*ProofOfPayment, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fetchErr(id, err)
	}
	if o.PaymentMethod != PaymentPix {
		return nil, fmt.Errorf("%w: proof of payment only applies to pix orders", ErrValidation)
	}
	proof := ProofOfPayment{URL: url, UploadedAt: s.now()}
	if err := s.store.UpdateFields(ctx, id, map[string]any{"proof_of_payment": proof}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.persistErr("attach proof", err)
	}

	s.pub.Publish(s.newEvent(EventProofUploaded, id, mustMarshal(ProofUploadedPayload{URL: url})))
	s.log.Info("proof of payment attached", "order_id", id)
	return &proof, nil
}

func (s *Service) ListOrders(ctx context.Context, f Filter) ([]Order, error) {
	out, err := s.store.Find(ctx, f)
	if err != nil {
		return nil, s.persistErr("list orders", err)
	}
	return out, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fetchErr(id, err)
	}
	return o, nil
}

func (s *Service) RemoveOrder(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return s.persistErr("delete order", err)
	}
	return nil
}

func validateInput(in CreateOrderInput) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: order needs at least one item", ErrValidation)
	}
	switch in.DeliveryMode {
	case ModeDelivery:
		if in.DeliveryDetails == nil {
			return fmt.Errorf("%w: delivery order needs delivery details", ErrValidation)
		}
		if in.DeliveryDetails.DeliveryFeeCents < 0 {
			return fmt.Errorf("%w: delivery fee cannot be negative", ErrValidation)
		}
	case ModePickup:
		if in.DeliveryDetails != nil {
			return fmt.Errorf("%w: pickup order cannot carry delivery details", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown delivery mode %q", ErrValidation, in.DeliveryMode)
	}
	switch in.PaymentMethod {
	case PaymentCash, PaymentPix, PaymentCard:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}
	if in.Customer.Name == "" || in.Customer.Phone == "" {
		return fmt.Errorf("%w: customer name and phone are required", ErrValidation)
	}
	return nil
}

func (s *Service) newEvent(typ, orderID string, payload []byte) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OrderID:    orderID,
		OccurredAt: s.now(),
		Payload:    payload,
	}
}

func (s *Service) fetchErr(id string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return s.persistErr("fetch order "+id, err)
}

// persistErr logs the storage detail and returns the generic sentinel
// so nothing internal leaks to the caller.
func (s *Service) persistErr(op string, err error) error {
	s.log.Error("store failure", "op", op, "err", err)
	return ErrPersistence
}
