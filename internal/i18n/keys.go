// internal/i18n/keys.go
package i18n

// Translation keys
const (
	// Auth
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"

	// Items
	KeyItemNotFound        = "item.not_found"
	KeyItemNotPurchasable  = "item.not_purchasable"
	KeyItemOwnedByBuyer    = "item.owned_by_buyer"
	KeyItemAlreadyPurchase = "item.already_purchased"

	// Orders
	KeyOrderNotFound          = "order.not_found"
	KeyOrderOwnershipMismatch = "order.ownership_mismatch"
	KeyOrderClosed            = "order.closed"

	// Payments
	KeyPaymentVerified           = "payment.verified"
	KeyPaymentInvalidSignature   = "payment.invalid_signature"
	KeyPaymentIncomplete         = "payment.incomplete"
	KeyPaymentGatewayUnavailable = "payment.gateway_unavailable"
	KeyPaymentLedgerFailure      = "payment.ledger_failure"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"

	// Generic
	KeyInternalError = "error.internal"
)
