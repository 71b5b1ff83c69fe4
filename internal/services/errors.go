// internal/services/errors.go
package services

import (
	"errors"
)

var (
	ErrItemNotFound              = errors.New("item not found")
	ErrItemNotPurchasable        = errors.New("item is not purchasable")
	ErrOwnItem                   = errors.New("buyer is the item's seller")
	ErrAlreadyPurchased          = errors.New("item already purchased")
	ErrOrderNotFound             = errors.New("order not found")
	ErrOrderOwnershipMismatch    = errors.New("order belongs to another buyer")
	ErrOrderClosed               = errors.New("order is closed")
	ErrInvalidSignature          = errors.New("invalid payment signature")
	ErrPaymentIncomplete         = errors.New("payment has not settled")
	ErrPaymentGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrLedgerFailure             = errors.New("ledger update failed")
	ErrIllegalTransition         = errors.New("illegal purchase status transition")
	ErrInvalidFeeRate            = errors.New("platform fee must be between 0 and 100 percent")
	ErrInvalidAmount             = errors.New("amount must be positive")
)

// ErrorClass groups domain errors by the action a client should take.
type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassValidation
	ClassNotFound
	ClassConflict
	ClassIntegrity
	ClassUpstream
)

func (c ErrorClass) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassConflict:
		return "conflict"
	case ClassIntegrity:
		return "integrity"
	case ClassUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Classify maps err onto the error taxonomy. Unknown errors, including
// ErrLedgerFailure and ErrIllegalTransition, are internal.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassInternal
	case errors.Is(err, ErrItemNotPurchasable),
		errors.Is(err, ErrOwnItem),
		errors.Is(err, ErrInvalidFeeRate),
		errors.Is(err, ErrInvalidAmount):
		return ClassValidation
	case errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrOrderNotFound):
		return ClassNotFound
	case errors.Is(err, ErrAlreadyPurchased),
		errors.Is(err, ErrOrderOwnershipMismatch),
		errors.Is(err, ErrOrderClosed),
		errors.Is(err, ErrPaymentIncomplete):
		return ClassConflict
	case errors.Is(err, ErrInvalidSignature):
		return ClassIntegrity
	case errors.Is(err, ErrPaymentGatewayUnavailable):
		return ClassUpstream
	default:
		return ClassInternal
	}
}
