package orders

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBuyerNotFound = errors.New("buyer not found")
	ErrOrderNotFound = errors.New("order not found")

	// ErrStockConflict: a commit-time stock re-check failed because a
	// concurrent settlement drained the stock after validation. Nothing
	// was committed.
	ErrStockConflict = errors.New("stock no longer available")

	// ErrFundsConflict: the commit-time funding re-check failed because a
	// concurrent settlement moved the buyer's balance. Nothing was
	// committed.
	ErrFundsConflict = errors.New("balance no longer covers order")

	// ErrRefConflict: the generated order ref is already taken. The caller
	// regenerates and retries.
	ErrRefConflict = errors.New("order ref already exists")

	// ErrExternalIDConflict: an order with the same external id was already
	// committed, most likely a concurrent double submit. The caller resolves
	// the existing order and returns it instead of charging twice.
	ErrExternalIDConflict = errors.New("external id already exists")
)

// Settlement is the unit handed to the store for atomic commit: the fully
// formed SUCCESS order plus the wallet purpose to record. The store
// re-checks stock and funding under row locks and applies all effects
// (order + lines, stock decrements, balance update, wallet entry) in one
// transaction, or none of them.
type Settlement struct {
	Order   Order
	Purpose string
}

// Store is the persistence boundary of the settlement engine.
type Store interface {
	GetBuyer(ctx context.Context, id string) (Buyer, error)
	// GetProProfile returns nil, nil when the buyer has no subscription.
	GetProProfile(ctx context.Context, buyerID string) (*ProProfile, error)
	ListAssets(ctx context.Context) ([]Asset, error)
	ListBuyerOrdersSince(ctx context.Context, buyerID string, since time.Time, statuses []Status) ([]Order, error)
	// Settle commits the settlement atomically and returns the buyer's new
	// balance. Fails with ErrStockConflict, ErrFundsConflict, ErrRefConflict
	// or ErrExternalIDConflict when a commit-time re-check does not hold.
	Settle(ctx context.Context, s Settlement) (newBalanceCents int64, err error)

	GetOrderStatus(ctx context.Context, orderRef string) (Status, error)
	// GetOrderByExternalID returns ErrOrderNotFound when no order carries
	// the external id.
	GetOrderByExternalID(ctx context.Context, externalID string) (Order, error)
	ListWalletEntries(ctx context.Context, buyerID string) ([]WalletEntry, error)
}
