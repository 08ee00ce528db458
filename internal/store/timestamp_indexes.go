package store

import (
	"fmt"
	"time"
)

// EncodedTimestampLen is the fixed width of an encoded timestamp:
// 2006-01-02T15:04:05.NNNNNNNNNZ.
const EncodedTimestampLen = 30

// EncodeTimestamp renders a timestamp so lexicographic order equals time
// order. The stdlib RFC3339Nano format trims trailing zeros, which breaks
// sorting, so nanoseconds are zero-padded to a fixed nine digits.
// Example: 2024-01-15T10:30:00.123456789Z.
func EncodeTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + fmt.Sprintf(".%09d", t.Nanosecond()) + "Z"
}
