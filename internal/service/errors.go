package service

import "errors"

// Error taxonomy for the checkout and reconciliation flows. Handlers map
// these onto HTTP responses; none of them is fatal to the process.
var (
	// ErrValidation covers bad checkout input; shown back to the user.
	ErrValidation = errors.New("invalid checkout input")
	// ErrCartEmpty rejects checkout over an empty cart.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrGuestCheckoutDisabled rejects anonymous checkout when config forbids it.
	ErrGuestCheckoutDisabled = errors.New("guest checkout is disabled")
	// ErrGateway marks a failed or non-success gateway call. The order row
	// survives in a terminal failed/cancelled state as an audit trail.
	ErrGateway = errors.New("payment gateway failure")
	// ErrIntegrity marks a token or conversation-id mismatch on the payment
	// paths. No state is mutated; the user sees a generic error.
	ErrIntegrity = errors.New("payment integrity check failed")
	// ErrInvalidCredentials is the login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
