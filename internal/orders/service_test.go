package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fornalha/pizzaria-orders/internal/catalog"
	"github.com/fornalha/pizzaria-orders/internal/schedule"
)

type recordingStore struct {
	*MemStore
	mu      sync.Mutex
	creates int
	failAll error
}

func (r *recordingStore) Create(ctx context.Context, o *Order) (string, error) {
	r.mu.Lock()
	r.creates++
	r.mu.Unlock()
	if r.failAll != nil {
		return "", r.failAll
	}
	return r.MemStore.Create(ctx, o)
}

func (r *recordingStore) created() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) all() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

func alwaysOpen() schedule.WeekConfig {
	cfg := schedule.WeekConfig{}
	for _, d := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		cfg[d] = schedule.DayWindow{Open: true, Start: "00:00", End: "23:59"}
	}
	return cfg
}

func alwaysClosed() schedule.WeekConfig { return schedule.WeekConfig{} }

func testCatalog() *catalog.Snapshot {
	return &catalog.Snapshot{
		Categories: map[string]catalog.Category{
			"pizzas": {
				AllowHalfAndHalf:          true,
				Borders:                   []string{"catupiry", "cheddar"},
				LargestSize:               "G",
				BorderSurchargeLargeCents: 800,
				BorderSurchargeCents:      500,
				Items: map[string]catalog.Item{
					"Margherita": {SizePriceCents: map[string]int{"P": 3000, "G": 4500}},
					"Calabresa":  {SizePriceCents: map[string]int{"P": 3500, "G": 5000}},
				},
			},
		},
	}
}

func newTestService(hours func() schedule.WeekConfig) (*Service, *recordingStore, *recordingPublisher) {
	store := &recordingStore{MemStore: NewMemStore()}
	pub := &recordingPublisher{}
	svc := NewService(store, schedule.NewEvaluator(time.UTC), hours, testCatalog, pub, nopNotifier{}, nil)
	return svc, store, pub
}

func validInput() CreateOrderInput {
	return CreateOrderInput{
		Items: []LineItemInput{
			{Name: "Margherita", Category: "pizzas", Quantity: 1, Size: "G", Border: "catupiry"},
		},
		DeliveryMode: ModeDelivery,
		DeliveryDetails: &DeliveryDetails{
			Street: "Rua das Flores", Number: "120", Neighborhood: "Centro",
			DeliveryFeeCents: 700,
		},
		Customer:      Customer{Name: "Ana", Phone: "(11) 98888-7777"},
		PaymentMethod: PaymentPix,
	}
}

func TestCreateOrderWhileClosedHasNoSideEffects(t *testing.T) {
	svc, store, pub := newTestService(alwaysClosed)

	_, err := svc.CreateOrder(context.Background(), validInput())
	require.ErrorIs(t, err, ErrEstablishmentClosed)
	assert.Zero(t, store.created())
	assert.Empty(t, pub.all())
}

func TestCreateOrderRecomputesPrices(t *testing.T) {
	svc, _, pub := newTestService(alwaysOpen)

	id, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	o, err := svc.GetOrder(context.Background(), id)
	require.NoError(t, err)
	// G Margherita (4500) + large border (800) = 5300, plus 700 fee.
	assert.Equal(t, 5300, o.Items[0].UnitPriceCents)
	assert.Equal(t, 5300+700, o.TotalCents)
	assert.Equal(t, StatusPending, o.Status)
	assert.False(t, o.CreatedAt.IsZero())

	evs := pub.all()
	require.Len(t, evs, 1)
	assert.Equal(t, EventNewOrder, evs[0].Type)
	assert.Equal(t, id, evs[0].OrderID)
}

func TestCreateOrderHalfAndHalfPricesAtMax(t *testing.T) {
	svc, _, _ := newTestService(alwaysOpen)

	in := validInput()
	in.Items = []LineItemInput{{
		Category: "pizzas", Quantity: 1, Size: "G",
		Flavors: []string{"Margherita", "Calabresa"},
	}}
	in.DeliveryMode = ModePickup
	in.DeliveryDetails = nil

	id, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	o, err := svc.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5000, o.Items[0].UnitPriceCents)
	assert.Equal(t, 5000, o.TotalCents)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, store, _ := newTestService(alwaysOpen)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{"no items", func(in *CreateOrderInput) { in.Items = nil }},
		{"zero quantity", func(in *CreateOrderInput) { in.Items[0].Quantity = 0 }},
		{"unknown item", func(in *CreateOrderInput) { in.Items[0].Name = "Portuguesa" }},
		{"delivery without details", func(in *CreateOrderInput) { in.DeliveryDetails = nil }},
		{"pickup with details", func(in *CreateOrderInput) { in.DeliveryMode = ModePickup }},
		{"negative fee", func(in *CreateOrderInput) { in.DeliveryDetails.DeliveryFeeCents = -1 }},
		{"bad payment method", func(in *CreateOrderInput) { in.PaymentMethod = "check" }},
		{"no phone", func(in *CreateOrderInput) { in.Customer.Phone = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.CreateOrder(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, store.created())
}

func TestCreateOrderPersistenceFailure(t *testing.T) {
	svc, store, pub := newTestService(alwaysOpen)
	store.failAll = errors.New("mongo down")

	_, err := svc.CreateOrder(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, pub.all())
}

func TestAdvanceStatusChain(t *testing.T) {
	svc, _, pub := newTestService(alwaysOpen)
	ctx := context.Background()

	id, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	for _, target := range []Status{StatusPreparing, StatusReady, StatusOutForDelivery, StatusDelivered} {
		require.NoError(t, svc.AdvanceStatus(ctx, id, target))
	}
	o, err := svc.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, o.Status)

	// new-order plus four status changes.
	evs := pub.all()
	require.Len(t, evs, 5)
	for _, ev := range evs[1:] {
		assert.Equal(t, EventStatusChanged, ev.Type)
	}
}

func TestAdvanceStatusRejectsInvalidTransitions(t *testing.T) {
	svc, _, _ := newTestService(alwaysOpen)
	ctx := context.Background()

	id, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	// From pending only preparing or canceled are allowed.
	for _, target := range []Status{StatusReady, StatusOutForDelivery, StatusDelivered, StatusPending} {
		assert.ErrorIs(t, svc.AdvanceStatus(ctx, id, target), ErrInvalidTransition, "target %s", target)
	}

	require.NoError(t, svc.AdvanceStatus(ctx, id, StatusCanceled))
	for _, target := range []Status{StatusPreparing, StatusReady, StatusDelivered, StatusCanceled} {
		assert.ErrorIs(t, svc.AdvanceStatus(ctx, id, target), ErrInvalidTransition, "target %s", target)
	}

	assert.ErrorIs(t, svc.AdvanceStatus(ctx, "no-such-id", StatusPreparing), ErrNotFound)
	assert.ErrorIs(t, svc.AdvanceStatus(ctx, id, "frying"), ErrValidation)
}

func TestCancelableFromAnyNonTerminalState(t *testing.T) {
	svc, _, _ := newTestService(alwaysOpen)
	ctx := context.Background()

	for _, advance := range [][]Status{
		{},
		{StatusPreparing},
		{StatusPreparing, StatusReady},
		{StatusPreparing, StatusReady, StatusOutForDelivery},
	} {
		id, err := svc.CreateOrder(ctx, validInput())
		require.NoError(t, err)
		for _, st := range advance {
			require.NoError(t, svc.AdvanceStatus(ctx, id, st))
		}
		assert.NoError(t, svc.AdvanceStatus(ctx, id, StatusCanceled))
	}
}

func TestAttachProofOfPayment(t *testing.T) {
	svc, _, pub := newTestService(alwaysOpen)
	ctx := context.Background()

	id, err := svc.CreateOrder(ctx, validInput()) // pix order
	require.NoError(t, err)

	proof, err := svc.AttachProofOfPayment(ctx, id, "/uploads/abc.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/abc.jpg", proof.URL)
	assert.False(t, proof.UploadedAt.IsZero())

	// Re-upload overwrites, latest wins.
	proof, err = svc.AttachProofOfPayment(ctx, id, "/uploads/def.jpg")
	require.NoError(t, err)
	o, err := svc.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/def.jpg", o.ProofOfPayment.URL)

	evs := pub.all()
	var proofs int
	for _, ev := range evs {
		if ev.Type == EventProofUploaded {
			proofs++
		}
	}
	assert.Equal(t, 2, proofs)

	// Non-pix orders reject proof uploads.
	in := validInput()
	in.PaymentMethod = PaymentCash
	in.ChangeForCents = 10000
	cashID, err := svc.CreateOrder(ctx, in)
	require.NoError(t, err)
	_, err = svc.AttachProofOfPayment(ctx, cashID, "/uploads/x.jpg")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListOrdersPhoneFilter(t *testing.T) {
	svc, _, _ := newTestService(alwaysOpen)
	ctx := context.Background()

	a := validInput()
	a.Customer.Phone = "(11) 98888-7777"
	_, err := svc.CreateOrder(ctx, a)
	require.NoError(t, err)

	b := validInput()
	b.Customer.Phone = "21 97777-0000"
	_, err = svc.CreateOrder(ctx, b)
	require.NoError(t, err)

	got, err := svc.ListOrders(ctx, Filter{Phone: "11988887777"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "(11) 98888-7777", got[0].Customer.Phone)

	// Substring matching over-matches on short queries; accepted.
	got, err = svc.ListOrders(ctx, Filter{Phone: "7777"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	all, err := svc.ListOrders(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRemoveOrder(t *testing.T) {
	svc, _, _ := newTestService(alwaysOpen)
	ctx := context.Background()

	id, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.RemoveOrder(ctx, id))
	assert.ErrorIs(t, svc.RemoveOrder(ctx, id), ErrNotFound)
	_, err = svc.GetOrder(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
