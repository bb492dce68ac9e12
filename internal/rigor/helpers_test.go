package rigor

import "time"

// testTime returns a fixed timestamp for deterministic artifacts.
func testTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}
