package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const walletPurposeOrder = "Order placed"

// How many times a settlement is retried when the generated order ref
// collides with an existing one.
const refRetries = 3

type PlaceOrderRequest struct {
	BuyerID string
	// ExternalID is an optional client-chosen idempotency key. Resubmitting
	// it returns the original order instead of charging twice; the orders
	// table enforces its uniqueness.
	ExternalID string
	Lines      []CartLine
	// ExpectedTotalCents is the total the client rendered. It is never
	// charged; when it disagrees with the recomputed amount the order is
	// rejected so the client re-renders with current prices.
	ExpectedTotalCents int64
}

// Result is what the caller gets back: either success with the settled
// order's numbers, or a human-readable message collecting every reason the
// order was refused.
type Result struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	OrderRef        string `json:"order_ref,omitempty"`
	AmountCents     int64  `json:"amount_cents,omitempty"`
	NewBalanceCents int64  `json:"new_balance_cents,omitempty"`
	// Idempotent marks a replayed external id: the order was committed by
	// an earlier submission and nothing was charged now.
	Idempotent bool `json:"idempotent,omitempty"`
	// Lines are the settled lines with the prices actually charged.
	Lines []OrderLine `json:"-"`
}

// Service is the order validation and settlement engine.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

func reject(msg string) Result { return Result{Success: false, Message: msg} }

// PlaceOrder validates and settles one multi-line order. Every failure
// path is converted to a Result the buyer can read; storage faults are
// logged here and reported generically, never leaked.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) Result {
	if len(req.Lines) == 0 {
		return reject("order has no items")
	}
	for _, l := range req.Lines {
		if l.AssetName == "" {
			return reject("order has an item without a name")
		}
	}

	if req.ExternalID != "" {
		existing, err := s.store.GetOrderByExternalID(ctx, req.ExternalID)
		if err == nil {
			return s.replayed(existing)
		}
		if !errors.Is(err, ErrOrderNotFound) {
			return s.storageFailure("idempotency lookup", req, err)
		}
	}

	buyer, err := s.store.GetBuyer(ctx, req.BuyerID)
	if errors.Is(err, ErrBuyerNotFound) {
		return reject("user not found")
	}
	if err != nil {
		return s.storageFailure("load buyer", req, err)
	}
	if buyer.Role == RoleBlocked {
		return reject("you have been blocked, contact admin to know more")
	}

	pro, err := s.store.GetProProfile(ctx, buyer.ID)
	if err != nil {
		return s.storageFailure("load pro profile", req, err)
	}
	catalog, err := s.store.ListAssets(ctx)
	if err != nil {
		return s.storageFailure("load assets", req, err)
	}
	since, _ := DayWindow(s.now())
	history, err := s.store.ListBuyerOrdersSince(ctx, buyer.ID, since, []Status{StatusPending, StatusSuccess})
	if err != nil {
		return s.storageFailure("load today's orders", req, err)
	}

	lines := ResolveLines(req.Lines, catalog, pro)
	quota := AccumulateQuota(history)
	if violations := Validate(lines, buyer.Role, quota); len(violations) > 0 {
		return reject(strings.Join(violations, ", "))
	}

	amount := Amount(lines)
	if req.ExpectedTotalCents != 0 && req.ExpectedTotalCents != amount {
		return reject("order total has changed, please review your order")
	}

	plan, err := PlanFunding(buyer, pro, amount)
	if errors.Is(err, ErrInsufficientFunds) {
		return reject("you don't have enough money")
	}
	if errors.Is(err, ErrNoProProfile) {
		// Role says PRO but no subscription record exists: upstream data
		// drift, worth an operator's attention.
		s.logger.Warn("PRO buyer without PRO profile",
			zap.String("buyer_id", buyer.ID))
		return reject("you are not a pro user")
	}

	orderLines := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		orderLines = append(orderLines, OrderLine{AssetName: l.AssetName, Quantity: l.Quantity, PriceCents: l.PriceCents})
	}

	for attempt := 0; attempt < refRetries; attempt++ {
		now := s.now()
		order := Order{
			ID:          uuid.NewString(),
			OrderRef:    NewOrderRef(now),
			ExternalID:  req.ExternalID,
			BuyerID:     buyer.ID,
			Lines:       orderLines,
			AmountCents: amount,
			Status:      StatusSuccess,
			CreatedAt:   now,
		}
		newBalance, err := s.store.Settle(ctx, Settlement{Order: order, Purpose: walletPurposeOrder})
		switch {
		case err == nil:
			s.logger.Info("order settled",
				zap.String("buyer_id", buyer.ID),
				zap.String("order_ref", order.OrderRef),
				zap.Int64("amount_cents", amount),
				zap.Int64("new_balance_cents", newBalance),
				zap.Bool("on_credit", plan.OnCredit))
			return Result{
				Success:         true,
				Message:         "order added successfully",
				OrderRef:        order.OrderRef,
				AmountCents:     amount,
				NewBalanceCents: newBalance,
				Lines:           orderLines,
			}
		case errors.Is(err, ErrRefConflict):
			continue
		case errors.Is(err, ErrExternalIDConflict):
			// Another submission with the same external id committed between
			// the lookup above and this transaction.
			existing, gerr := s.store.GetOrderByExternalID(ctx, req.ExternalID)
			if gerr != nil {
				return s.storageFailure("idempotency lookup", req, gerr)
			}
			return s.replayed(existing)
		case errors.Is(err, ErrStockConflict):
			// Lost a race on stock between validation and commit.
			return reject(err.Error())
		case errors.Is(err, ErrFundsConflict):
			return reject("you don't have enough money")
		default:
			return s.storageFailure("settle", req, err)
		}
	}
	return s.storageFailure("settle", req, ErrRefConflict)
}

func (s *Service) replayed(existing Order) Result {
	s.logger.Info("order replayed",
		zap.String("external_id", existing.ExternalID),
		zap.String("order_ref", existing.OrderRef))
	return Result{
		Success:     true,
		Message:     "order already placed",
		OrderRef:    existing.OrderRef,
		AmountCents: existing.AmountCents,
		Idempotent:  true,
	}
}

// OrderStatus reports the status of an order by its buyer-facing ref.
func (s *Service) OrderStatus(ctx context.Context, orderRef string) (Status, error) {
	return s.store.GetOrderStatus(ctx, orderRef)
}

// Catalog returns the full asset catalog snapshot.
func (s *Service) Catalog(ctx context.Context) ([]Asset, error) {
	return s.store.ListAssets(ctx)
}

// WalletHistory returns a buyer's ledger, newest first.
func (s *Service) WalletHistory(ctx context.Context, buyerID string) ([]WalletEntry, error) {
	return s.store.ListWalletEntries(ctx, buyerID)
}

func (s *Service) storageFailure(op string, req PlaceOrderRequest, err error) Result {
	s.logger.Error("order placement failed",
		zap.String("op", op),
		zap.String("buyer_id", req.BuyerID),
		zap.Any("cart", req.Lines),
		zap.Error(err))
	return reject("error while adding order, please try again")
}
