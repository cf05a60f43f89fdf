package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderRef(t *testing.T) {
	ref := NewOrderRef(time.Now())
	assert.Len(t, ref, orderRefDigits)
	for _, r := range ref {
		assert.True(t, r >= '0' && r <= '9', "ref must be digits only, got %q", ref)
	}
}
