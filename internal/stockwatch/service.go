package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/shishiro26/growons-orders/internal/kafka"
	"github.com/shishiro26/growons-orders/internal/orders"
	"github.com/shishiro26/growons-orders/internal/redisx"
)

// StockReader is the slice of the orders store this service needs.
type StockReader interface {
	GetAssets(ctx context.Context, names []string) ([]orders.Asset, error)
}

// Publisher is satisfied by kafkax.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Dedup is the slice of the redis client used to drop replayed events.
// Satisfied by *redis.Client.
type Dedup interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Service watches settled orders and raises asset.stock.low events when an
// ordered asset's remaining stock reaches the threshold.
type Service struct {
	Assets    StockReader
	Redis     Dedup
	Producer  Publisher
	Threshold int
	Name      string
	Logger    *zap.Logger
}

// HandleOrderPlaced is wired as the consumer handler for order.placed.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "stockwatch", env.EventID)
	if s.Redis != nil {
		if n, _ := s.Redis.Exists(ctx, dkey).Result(); n > 0 {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(p.Lines))
	for _, l := range p.Lines {
		names = append(names, l.AssetName)
	}
	assets, err := s.Assets.GetAssets(ctx, names)
	if err != nil {
		return err
	}

	for _, a := range assets {
		if a.Stock > s.Threshold {
			continue
		}
		s.log().Warn("asset stock low",
			zap.String("asset", a.Name),
			zap.Int("stock", a.Stock),
			zap.Int("threshold", s.Threshold))
		s.publishLow(a, env.TraceID, p.OrderRef)
	}

	// Mark the event only after it was fully processed: failing before this
	// point leaves the offset uncommitted and the redelivery reprocessable.
	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	return nil
}

func (s *Service) publishLow(a orders.Asset, trace, orderRef string) {
	if s.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventAssetStockLow,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Name,
		TraceID:       trace,
		CorrelationID: orderRef,
		Payload: kafkax.MustMarshal(orders.AssetStockLowPayload{
			AssetName: a.Name,
			Stock:     a.Stock,
			Threshold: s.Threshold,
		}),
	}
	s.Producer.Publish(orders.PartitionKey(orderRef), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventAssetStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
