package orders

import "errors"

var (
	// ErrInsufficientFunds rejects a purchase the buyer cannot cover from
	// balance (standard buyers) or balance plus credit line (PRO buyers).
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNoProProfile means a buyer with role PRO has no subscription
	// record. That is upstream data drift, not a normal rejection.
	ErrNoProProfile = errors.New("buyer has no PRO profile")
)

// FundingPlan is the decided outcome of the funding check.
type FundingPlan struct {
	AmountCents     int64
	NewBalanceCents int64
	OnCredit        bool
}

// PlanFunding decides whether the buyer can fund amount. Direct settlement
// when the balance covers it; otherwise standard buyers are rejected and
// PRO buyers may draw on their credit line down to -creditLimit. The
// headroom check is a single inequality: balance + creditLimit >= amount
// holds for negative, zero and positive balances alike.
func PlanFunding(buyer Buyer, pro *ProProfile, amount int64) (FundingPlan, error) {
	if buyer.TotalMoneyCents >= amount {
		return FundingPlan{
			AmountCents:     amount,
			NewBalanceCents: buyer.TotalMoneyCents - amount,
		}, nil
	}
	if buyer.Role != RolePro {
		return FundingPlan{}, ErrInsufficientFunds
	}
	if pro == nil {
		return FundingPlan{}, ErrNoProProfile
	}
	if buyer.TotalMoneyCents+pro.CreditLimitCents < amount {
		return FundingPlan{}, ErrInsufficientFunds
	}
	return FundingPlan{
		AmountCents:     amount,
		NewBalanceCents: buyer.TotalMoneyCents - amount,
		OnCredit:        true,
	}, nil
}
