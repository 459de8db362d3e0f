package orders

import (
	"encoding/json"
	"time"
)

const (
	EventNewOrder      = "new-order"
	EventStatusChanged = "status-changed"
	EventProofUploaded = "proof-uploaded"
)

// Event is ephemeral: published once to whoever is connected, never
// stored or replayed. Late subscribers re-fetch state instead.
type Event struct {
	ID         string          `json:"event_id"`
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type NewOrderPayload struct {
	Status     Status `json:"status"`
	TotalCents int    `json:"total_cents"`
	Customer   string `json:"customer"`
}

type StatusChangedPayload struct {
	From Status `json:"from"`
	To   Status `json:"to"`
}

type ProofUploadedPayload struct {
	URL string `json:"url"`
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
