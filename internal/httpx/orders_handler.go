package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/shishiro26/growons-orders/internal/kafka"
	"github.com/shishiro26/growons-orders/internal/orders"
	"github.com/shishiro26/growons-orders/internal/redisx"
)

type PlaceOrderReq struct {
	ExternalID         string            `json:"external_id,omitempty"`
	BuyerID            string            `json:"buyer_id"`
	Items              []orders.CartLine `json:"items"`
	ExpectedTotalCents int64             `json:"expected_total_cents,omitempty"`
}

type PlaceOrderResp struct {
	OrderRef        string `json:"order_ref"`
	AmountCents     int64  `json:"amount_cents"`
	NewBalanceCents int64  `json:"new_balance_cents"`
	Idempotent      bool   `json:"idempotent"`
}

// Publisher is satisfied by kafkax.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Service  *orders.Service
	Producer Publisher
	Redis    *redis.Client
	Name     string // producer name stamped on events
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{ref}", h.getOrder)
	r.Get("/assets", h.listAssets)
	r.Get("/buyers/{id}/wallet", h.walletHistory)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.BuyerID == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Redis only short-circuits the hot path here; the orders table's
	// external_id constraint is what actually prevents a double charge.
	var idemKey string
	if req.ExternalID != "" && h.Redis != nil {
		idemKey = fmt.Sprintf(redisx.KeyIdemOrderPlace, req.ExternalID)
		if ref, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && ref != "" {
			writeJSON(w, http.StatusOK, PlaceOrderResp{OrderRef: ref, Idempotent: true})
			return
		}
	}

	res := h.Service.PlaceOrder(ctx, orders.PlaceOrderRequest{
		BuyerID:            req.BuyerID,
		ExternalID:         req.ExternalID,
		Lines:              req.Items,
		ExpectedTotalCents: req.ExpectedTotalCents,
	})
	if !res.Success {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": res.Message})
		return
	}
	if res.Idempotent {
		// Replayed external_id: the first submission already published the
		// event, so only refresh the cache and echo the original order.
		if idemKey != "" {
			_ = h.Redis.Set(ctx, idemKey, res.OrderRef, redisx.TTLIdempotency).Err()
		}
		writeJSON(w, http.StatusOK, PlaceOrderResp{
			OrderRef:    res.OrderRef,
			AmountCents: res.AmountCents,
			Idempotent:  true,
		})
		return
	}

	if h.Redis != nil {
		if idemKey != "" {
			_ = h.Redis.Set(ctx, idemKey, res.OrderRef, redisx.TTLIdempotency).Err()
		}
		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, res.OrderRef)
		_ = h.Redis.Set(ctx, statusKey, `{"status":"SUCCESS"}`, redisx.TTLStatusCache).Err()
	}

	h.publishPlaced(r, req, res)

	writeJSON(w, http.StatusCreated, PlaceOrderResp{
		OrderRef:        res.OrderRef,
		AmountCents:     res.AmountCents,
		NewBalanceCents: res.NewBalanceCents,
	})
}

func (h *OrdersHandler) publishPlaced(r *http.Request, req PlaceOrderReq, res orders.Result) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Name,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: res.OrderRef,
		// res.Lines carry the settled prices; the request items do not.
		Payload: kafkax.MustMarshal(orders.OrderPlacedPayload{
			OrderRef:    res.OrderRef,
			BuyerID:     req.BuyerID,
			Lines:       res.Lines,
			AmountCents: res.AmountCents,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(res.OrderRef), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing ref"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, ref)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	status, err := h.Service.OrderStatus(ctx, ref)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	body := map[string]any{"status": status}
	if h.Redis != nil {
		if b, err := json.Marshal(body); err == nil {
			_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *OrdersHandler) listAssets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	as, err := h.Service.Catalog(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, as)
}

func (h *OrdersHandler) walletHistory(w http.ResponseWriter, r *http.Request) {
	buyerID := chi.URLParam(r, "id")
	if buyerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	entries, err := h.Service.WalletHistory(ctx, buyerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "wallet unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
