package orders

import "errors"

// Expected business outcomes. Handlers classify with errors.Is; none of
// these carry internal storage detail.
var (
	ErrEstablishmentClosed = errors.New("establishment is closed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotFound            = errors.New("order not found")
	ErrValidation          = errors.New("invalid order input")
	ErrPersistence         = errors.New("order store unavailable")
)
