package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyName       = errors.New("empty product name")
	ErrZeroQuantity    = errors.New("zero quantity")
	ErrEmptyIdentity   = errors.New("empty identity")
	ErrProductNotFound = errors.New("product not found")
	ErrUnauthorized    = errors.New("caller is not the owner")

	ErrAlreadyPurchased = errors.New("product already purchased")
	ErrNotPurchased     = errors.New("product not purchased or already refunded")
	ErrRefundExpired    = errors.New("refund window expired")
)

// UnauthorizedError reports which identity attempted an owner-only call.
// It unwraps to ErrUnauthorized so callers can match with errors.Is.
type UnauthorizedError struct {
	Caller Identity
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("caller %q is not the owner", string(e.Caller))
}

func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }
