package orders

import "time"

type Role string

const (
	RoleUser    Role = "USER"
	RolePro     Role = "PRO"
	RoleAdmin   Role = "ADMIN"
	RoleBlocked Role = "BLOCKED"
)

// Buyer is read-only here; the identity subsystem owns it. The balance may
// be negative for PRO buyers, bounded by their credit limit.
type Buyer struct {
	ID              string
	Name            string
	Role            Role
	TotalMoneyCents int64
}

type Asset struct {
	Name        string
	PriceCents  int64
	Stock       int
	MinQuantity int
	MaxQuantity int // 0 = no daily cap
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProTerms are the per-asset overrides a PRO subscription grants.
type ProTerms struct {
	MinQuantity int
	MaxQuantity int
	PriceCents  int64
}

// ProProfile is a buyer's PRO subscription: credit limit plus per-asset
// terms keyed by asset name (the subscription writer guarantees uniqueness
// and min <= max).
type ProProfile struct {
	BuyerID          string
	CreditLimitCents int64
	Assets           map[string]ProTerms
}

// CartLine is the unit of client request; never persisted standalone.
type CartLine struct {
	AssetName string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// EffectiveLine carries the resolved terms a cart line is validated and
// priced against. Ephemeral, computed per request.
type EffectiveLine struct {
	AssetName   string
	Quantity    int
	Stock       int
	MinQuantity int
	MaxQuantity int
	PriceCents  int64
}

type Order struct {
	ID          string // internal id (uuid)
	OrderRef    string // short buyer-facing reference, see NewOrderRef
	ExternalID  string // client-supplied idempotency key, empty when absent
	BuyerID     string
	Lines       []OrderLine
	AmountCents int64
	Status      Status
	CreatedAt   time.Time
}

type OrderLine struct {
	AssetName  string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// WalletEntry is one append-only row of the wallet ledger. Entries are
// never updated or deleted.
type WalletEntry struct {
	ID          int64
	BuyerID     string
	AmountCents int64
	OrderRef    string
	Purpose     string
	CreatedAt   time.Time
}
