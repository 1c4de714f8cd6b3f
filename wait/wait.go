// Package wait implements the polling-with-timeout idiom used throughout the
// driver.
package wait

import (
	"errors"
	"time"
)

// ErrTimeout reports that a condition did not hold before the deadline.
// Timeouts are expected outcomes on flaky video links, so they are returned,
// not panicked.
var ErrTimeout = errors.New("timeout waiting for condition")

// ForCondition polls cond every interval until it returns true or timeout
// elapses. The condition is evaluated once before any sleep. The call blocks
// the calling goroutine for up to the full timeout; there is no cancellation
// other than timeout expiry.
func ForCondition(cond func() bool, interval, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(interval)
	}
}
