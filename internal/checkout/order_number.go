package checkout

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	orderNumberPrefix = "ORD"
	suffixLength      = 5
	base36            = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewOrderNumber returns "ORD" + unix millis + 5 random uppercase base36 characters.
func NewOrderNumber(now time.Time) string {
	random := uuid.New()

	var b strings.Builder
	b.Grow(len(orderNumberPrefix) + 13 + suffixLength)
	b.WriteString(orderNumberPrefix)
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	for i := 0; i < suffixLength; i++ {
		b.WriteByte(base36[int(random[i])%len(base36)])
	}
	return b.String()
}
