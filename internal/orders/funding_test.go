package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanFunding_Direct(t *testing.T) {
	buyer := Buyer{ID: "b1", Role: RoleUser, TotalMoneyCents: 10000}
	plan, err := PlanFunding(buyer, nil, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), plan.NewBalanceCents)
	assert.False(t, plan.OnCredit)
}

func TestPlanFunding_ExactBalance(t *testing.T) {
	buyer := Buyer{ID: "b1", Role: RoleUser, TotalMoneyCents: 2000}
	plan, err := PlanFunding(buyer, nil, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), plan.NewBalanceCents)
}

func TestPlanFunding_StandardBuyerNoCredit(t *testing.T) {
	buyer := Buyer{ID: "b1", Role: RoleUser, TotalMoneyCents: 1000}
	_, err := PlanFunding(buyer, nil, 2000)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestPlanFunding_ProWithoutProfile(t *testing.T) {
	buyer := Buyer{ID: "b1", Role: RolePro, TotalMoneyCents: 1000}
	_, err := PlanFunding(buyer, nil, 2000)
	assert.ErrorIs(t, err, ErrNoProProfile)
}

func TestPlanFunding_CreditHeadroom(t *testing.T) {
	// negative balance: headroom = creditLimit - |balance|
	buyer := Buyer{ID: "b1", Role: RolePro, TotalMoneyCents: -2000}
	pro := &ProProfile{BuyerID: "b1", CreditLimitCents: 5000}

	_, err := PlanFunding(buyer, pro, 6000)
	assert.ErrorIs(t, err, ErrInsufficientFunds, "6000 > headroom 3000")

	plan, err := PlanFunding(buyer, pro, 2500)
	require.NoError(t, err)
	assert.Equal(t, int64(-4500), plan.NewBalanceCents)
	assert.True(t, plan.OnCredit)
}

func TestPlanFunding_CreditFromZeroBalance(t *testing.T) {
	buyer := Buyer{ID: "b1", Role: RolePro, TotalMoneyCents: 0}
	pro := &ProProfile{BuyerID: "b1", CreditLimitCents: 5000}

	plan, err := PlanFunding(buyer, pro, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), plan.NewBalanceCents)

	_, err = PlanFunding(buyer, pro, 5001)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestPlanFunding_CreditFromPositiveBalance(t *testing.T) {
	buyer := Buyer{ID: "b1", Role: RolePro, TotalMoneyCents: 1000}
	pro := &ProProfile{BuyerID: "b1", CreditLimitCents: 5000}

	plan, err := PlanFunding(buyer, pro, 6000)
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), plan.NewBalanceCents)
	assert.True(t, plan.OnCredit)

	_, err = PlanFunding(buyer, pro, 6001)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}
