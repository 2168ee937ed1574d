package normalize

import "time"

// SetNow pins the clock used for two-digit years and returns a restore func.
func SetNow(f func() time.Time) func() {
	old := now
	now = f
	return func() { now = old }
}
