package booking

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewBookingNumber builds a reference like VIS-20260315-A3F09C. The random
// suffix can collide on the same day, so callers retry on a duplicate key
// error; the unique index is the real guarantee.
func NewBookingNumber(now time.Time) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read failing means the platform entropy source is broken;
		// fall back to the clock so booking creation still works.
		return fmt.Sprintf("VIS-%s-%06d", now.Format("20060102"), now.UnixNano()%1000000)
	}
	return fmt.Sprintf("VIS-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(buf)))
}
