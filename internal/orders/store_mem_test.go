package orders

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memStore is an in-memory Store used by the engine tests. Settle performs
// the same commit-time re-checks the Postgres store does, under one lock,
// so concurrent settlements serialize the way row locks would.
type memStore struct {
	mu       sync.Mutex
	buyers   map[string]Buyer
	pros     map[string]*ProProfile
	assets   map[string]Asset
	orders   []Order
	wallet   []WalletEntry
	failRefs int   // fail this many Settle calls with ErrRefConflict
	settles  int   // Settle call count
	breakAll error // when set, Settle fails with this error
}

func newMemStore() *memStore {
	return &memStore{
		buyers: map[string]Buyer{},
		pros:   map[string]*ProProfile{},
		assets: map[string]Asset{},
	}
}

func (m *memStore) GetBuyer(_ context.Context, id string) (Buyer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buyers[id]
	if !ok {
		return Buyer{}, ErrBuyerNotFound
	}
	return b, nil
}

func (m *memStore) GetProProfile(_ context.Context, buyerID string) (*ProProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pros[buyerID], nil
}

func (m *memStore) ListAssets(_ context.Context) ([]Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Asset, 0, len(m.assets))
	for _, a := range m.assets {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) ListBuyerOrdersSince(_ context.Context, buyerID string, since time.Time, statuses []Status) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := map[Status]bool{}
	for _, s := range statuses {
		wanted[s] = true
	}
	var out []Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID && !o.CreatedAt.Before(since) && wanted[o.Status] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) Settle(_ context.Context, s Settlement) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settles++

	if m.breakAll != nil {
		return 0, m.breakAll
	}
	if m.failRefs > 0 {
		m.failRefs--
		return 0, ErrRefConflict
	}
	if s.Order.ExternalID != "" {
		for _, o := range m.orders {
			if o.ExternalID == s.Order.ExternalID {
				return 0, ErrExternalIDConflict
			}
		}
	}

	b, ok := m.buyers[s.Order.BuyerID]
	if !ok {
		return 0, ErrBuyerNotFound
	}
	newBalance := b.TotalMoneyCents - s.Order.AmountCents
	floor := int64(0)
	if b.Role == RolePro {
		if p := m.pros[b.ID]; p != nil {
			floor = -p.CreditLimitCents
		}
	}
	if newBalance < floor {
		return 0, ErrFundsConflict
	}

	for _, l := range s.Order.Lines {
		a, ok := m.assets[l.AssetName]
		if !ok || a.Stock < l.Quantity {
			return 0, fmt.Errorf("%s: %w", l.AssetName, ErrStockConflict)
		}
	}

	for _, l := range s.Order.Lines {
		a := m.assets[l.AssetName]
		a.Stock -= l.Quantity
		m.assets[l.AssetName] = a
	}
	b.TotalMoneyCents = newBalance
	m.buyers[b.ID] = b
	m.orders = append(m.orders, s.Order)
	m.wallet = append(m.wallet, WalletEntry{
		ID:          int64(len(m.wallet) + 1),
		BuyerID:     s.Order.BuyerID,
		AmountCents: s.Order.AmountCents,
		OrderRef:    s.Order.OrderRef,
		Purpose:     s.Purpose,
		CreatedAt:   s.Order.CreatedAt,
	})
	return newBalance, nil
}

func (m *memStore) GetOrderByExternalID(_ context.Context, externalID string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ExternalID != "" && o.ExternalID == externalID {
			return o, nil
		}
	}
	return Order{}, ErrOrderNotFound
}

func (m *memStore) GetOrderStatus(_ context.Context, orderRef string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderRef == orderRef {
			return o.Status, nil
		}
	}
	return "", ErrOrderNotFound
}

func (m *memStore) ListWalletEntries(_ context.Context, buyerID string) ([]WalletEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []WalletEntry
	for _, e := range m.wallet {
		if e.BuyerID == buyerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) stock(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assets[name].Stock
}

func (m *memStore) balance(buyerID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buyers[buyerID].TotalMoneyCents
}

func (m *memStore) counts() (nOrders, nWallet int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders), len(m.wallet)
}
