package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced   = "OrderPlaced"
	EventAssetStockLow = "AssetStockLow"
)

// Envelope wraps every published event with versioning and tracing
// metadata; Payload holds the event-specific body.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually order_ref
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderRef    string      `json:"order_ref"`
	BuyerID     string      `json:"buyer_id"`
	Lines       []OrderLine `json:"lines"`
	AmountCents int64       `json:"amount_cents"`
}

type AssetStockLowPayload struct {
	AssetName string `json:"asset_name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}
