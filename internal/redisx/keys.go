package redisx

import "time"

const (
	// Idempotent order placement: idem:order:place:{external_id} -> order_ref
	KeyIdemOrderPlace = "idem:order:place:%s"

	// Order status cache: order_status:{order_ref} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Consumer dedup: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
