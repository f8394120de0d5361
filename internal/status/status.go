package status

import "errors"

// Error taxonomy shared by services and handlers. Handlers map these to
// HTTP responses; nothing below the handler layer formats user-facing text.
var (
	ErrValidation            = errors.New("validation: invalid input")
	ErrInsufficientInventory = errors.New("inventory: not enough tickets available")
	ErrInvalidState          = errors.New("state: operation not allowed in current state")
	ErrNotFound              = errors.New("record not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvariantViolation    = errors.New("inventory: ledger counts inconsistent")
	ErrStorageUnavailable    = errors.New("storage: temporarily unavailable")
)
