package pipeline

import (
	"strconv"
	"time"
)

const timestampWidth = 13

// DateLayout is the human-readable rendering applied to normalized
// timestamps.
const DateLayout = "2006-01-02 15:04:05"

// NormalizeTimestamp canonicalizes a raw timestamp to a 13-digit
// millisecond epoch by right-padding the decimal rendering with zeros and
// truncating to 13 characters. This fixed-width padding is NOT a unit
// conversion: a 10-digit second-precision input becomes a padded guess
// rather than an exact millisecond value. Existing persisted data was
// written with this exact transform, so it must be preserved bit-for-bit.
func NormalizeTimestamp(raw int64) int64 {
	padded := strconv.FormatInt(raw, 10) + "0000000000000"
	normalized, err := strconv.ParseInt(padded[:timestampWidth], 10, 64)
	if err != nil {
		// Only reachable for negative inputs, which validation rejects
		// before normalization.
		return raw
	}
	return normalized
}

// FormatDate renders a normalized millisecond timestamp for the persisted
// date field.
func FormatDate(ts int64) string {
	return time.UnixMilli(ts).Format(DateLayout)
}
