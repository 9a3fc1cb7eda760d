package utils

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidProduct     = errors.New("invalid product")
	ErrAlreadyPurchased   = errors.New("limit-once product already purchased")
	ErrOutOfStock         = errors.New("out of stock")
	ErrInvalidPromo       = errors.New("invalid or exhausted promo code")
	ErrPackageUnavailable = errors.New("package unavailable")
	ErrPerUserLimit       = errors.New("per-user purchase limit reached")

	// ErrPurchaseInProgress is a retry signal, not a failure: another
	// holder owns the idempotency pre-lock for the same request.
	ErrPurchaseInProgress = errors.New("purchase in progress")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrNotRefundable       = errors.New("transaction is not refundable")
	ErrNotSettleable       = errors.New("only pending gold transactions can be settled")
	ErrDatabaseError       = errors.New("database error")
)

// InsufficientGoldError carries the amount the caller would need and the
// balance they actually hold.
type InsufficientGoldError struct {
	Required int64
	Balance  int64
}

func (e *InsufficientGoldError) Error() string {
	return fmt.Sprintf("insufficient gold: required %d, balance %d", e.Required, e.Balance)
}
