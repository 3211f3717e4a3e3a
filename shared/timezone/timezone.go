package timezone

import (
	"parcel/shared/constant"
	"time"
)

// ISO renders t the way browsers serialise dates: UTC, millisecond precision, Z suffix.
func ISO(t time.Time) string {
	return t.UTC().Format(constant.PaymentTimeFormat)
}
