package checkout

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultCodePrefix marks sale codes.
const DefaultCodePrefix = "V"

// CodeGenerator returns a new sale code for a checkout happening at now.
type CodeGenerator func(now time.Time) string

// NewSaleCode returns a generator producing prefix + ULID: a 48-bit millisecond
// timestamp followed by 80 random bits, Crockford base32 encoded. Codes from
// the same generator sort by creation time.
func NewSaleCode(prefix string) CodeGenerator {
	return func(now time.Time) string {
		return prefix + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	}
}
