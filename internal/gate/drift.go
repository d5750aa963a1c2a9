package gate

import "time"

// CheckDrift reports whether clientTime is within tolerance of serverTime
// in either direction (§4.5). A client clock that is too far ahead or
// behind cannot be trusted for license expiry comparisons.
func CheckDrift(clientTime, serverTime time.Time, tolerance time.Duration) bool {
	diff := serverTime.Sub(clientTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
