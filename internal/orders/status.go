package orders

type Status string

const (
	StatusPending        Status = "pending"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCanceled       Status = "canceled"
)

// next is the linear chain; canceled is reachable from any non-terminal
// state and handled in CanTransition rather than listed per state.
var next = map[Status]Status{
	StatusPending:        StatusPreparing,
	StatusPreparing:      StatusReady,
	StatusReady:          StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusOutForDelivery, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCanceled
}

func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCanceled {
		return true
	}
	return next[from] == to
}
