package orders

import (
	"math/rand"
	"strconv"
	"time"
)

const orderRefDigits = 10

// NewOrderRef derives a short buyer-facing order reference from the
// current time plus a random offset, keeping the last 10 digits. The refs
// column carries a unique constraint; on a collision the caller
// regenerates and retries the settlement.
func NewOrderRef(now time.Time) string {
	n := now.UnixMilli() + int64(rand.Intn(100000))
	s := strconv.FormatInt(n, 10)
	if len(s) > orderRefDigits {
		s = s[len(s)-orderRefDigits:]
	}
	return s
}
