package orders

import "time"

type DeliveryMode string

const (
	ModeDelivery DeliveryMode = "delivery"
	ModePickup   DeliveryMode = "pickup"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentPix  PaymentMethod = "pix"
	PaymentCard PaymentMethod = "card"
)

type Order struct {
	ID              string           `json:"id" bson:"_id,omitempty"`
	Items           []LineItem       `json:"items" bson:"items"`
	TotalCents      int              `json:"total_cents" bson:"total_cents"`
	DeliveryMode    DeliveryMode     `json:"delivery_mode" bson:"delivery_mode"`
	DeliveryDetails *DeliveryDetails `json:"delivery_details,omitempty" bson:"delivery_details,omitempty"`
	Customer        Customer         `json:"customer" bson:"customer"`
	PaymentMethod   PaymentMethod    `json:"payment_method" bson:"payment_method"`
	ChangeForCents  int              `json:"change_for_cents,omitempty" bson:"change_for_cents,omitempty"`
	ProofOfPayment  *ProofOfPayment  `json:"proof_of_payment,omitempty" bson:"proof_of_payment,omitempty"`
	Status          Status           `json:"status" bson:"status"`
	CreatedAt       time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" bson:"updated_at"`
}

// LineItem is embedded in its order and never mutated after submission.
// Flavors carries exactly two names for a half-and-half item.
type LineItem struct {
	Name           string   `json:"name" bson:"name"`
	Category       string   `json:"category" bson:"category"`
	Quantity       int      `json:"quantity" bson:"quantity"`
	UnitPriceCents int      `json:"unit_price_cents" bson:"unit_price_cents"`
	Size           string   `json:"size,omitempty" bson:"size,omitempty"`
	Border         string   `json:"border,omitempty" bson:"border,omitempty"`
	Extras         []string `json:"extras,omitempty" bson:"extras,omitempty"`
	Observation    string   `json:"observation,omitempty" bson:"observation,omitempty"`
	Flavors        []string `json:"flavors,omitempty" bson:"flavors,omitempty"`
}

func (li LineItem) TotalCents() int { return li.UnitPriceCents * li.Quantity }

type DeliveryDetails struct {
	Street           string `json:"street" bson:"street"`
	Number           string `json:"number" bson:"number"`
	Neighborhood     string `json:"neighborhood" bson:"neighborhood"`
	Complement       string `json:"complement,omitempty" bson:"complement,omitempty"`
	DeliveryFeeCents int    `json:"delivery_fee_cents" bson:"delivery_fee_cents"`
	EstimatedTime    string `json:"estimated_time,omitempty" bson:"estimated_time,omitempty"`
}

// Customer identity is a free-text phone string. It is a lookup key
// only, never an ownership guarantee.
type Customer struct {
	Name  string `json:"name" bson:"name"`
	Phone string `json:"phone" bson:"phone"`
}

type ProofOfPayment struct {
	URL        string    `json:"url" bson:"url"`
	UploadedAt time.Time `json:"uploaded_at" bson:"uploaded_at"`
}
