package qrt

import "time"

const (
	// Ticks are 100 ns units counted from 0001-01-01T00:00:00. The two
	// most significant bits carry timezone flags, not time.
	tickFlagMask   = uint64(3) << 62
	ticksPerSecond = 10_000_000

	// Seconds between 0001-01-01 and the Unix epoch.
	epochOffsetSeconds = 62135596800
)

// timeFromTicks converts a raw 64-bit tick value to a UTC timestamp.
// Any input is valid; the flag bits are masked off before conversion.
func timeFromTicks(raw uint64) time.Time {
	ticks := raw &^ tickFlagMask
	sec := int64(ticks/ticksPerSecond) - epochOffsetSeconds
	nsec := int64(ticks%ticksPerSecond) * 100
	return time.Unix(sec, nsec).UTC()
}
