package models

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Temporary identifiers and sequence numbers are placeholders minted while
// the device is offline. Both are distinguishable from permanent values by
// construction so the interface can flag records as "will renumber on sync".

// TemporaryIDPrefix marks item identifiers minted locally while offline.
const TemporaryIDPrefix = "tmp_"

// TemporaryNumberBase is the floor of the reserved namespace for temporary
// display sequence numbers. Permanent numbers are small per-sale counters;
// anything at or above the base is temporary.
const TemporaryNumberBase int64 = 1_000_000_000

var tempCounter atomic.Int64

// NewTemporaryID mints a placeholder item identifier such as
// "tmp_1700000000000". A counter suffix disambiguates two identifiers
// minted within the same millisecond.
func NewTemporaryID() string {
	n := tempCounter.Add(1)
	return fmt.Sprintf("%s%d_%d", TemporaryIDPrefix, time.Now().UnixMilli(), n)
}

// IsTemporaryID reports whether id is a locally minted placeholder.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TemporaryIDPrefix)
}

// NewTemporaryNumber mints a placeholder sequence number from the reserved
// namespace.
func NewTemporaryNumber() int64 {
	return TemporaryNumberBase + tempCounter.Add(1)
}

// IsTemporaryNumber reports whether n was minted while offline.
func IsTemporaryNumber(n int64) bool {
	return n >= TemporaryNumberBase
}
