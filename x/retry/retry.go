// Package retry replaces busy-wait polling with a bounded retry loop that has
// an explicit deadline and a typed failure.
package retry

import (
	"time"

	"labtrack-go/errcode"
)

// Do calls fn until it succeeds or timeout elapses. fn is always tried at
// least once. On exhaustion it returns *errcode.E with code Timeout wrapping
// the last error seen.
func Do(op string, timeout, backoff time.Duration, fn func() error) error {
	deadline := time.Now().Add(timeout)
	var last error
	for {
		if last = fn(); last == nil {
			return nil
		}
		if !time.Now().Add(backoff).Before(deadline) {
			return &errcode.E{C: errcode.Timeout, Op: op, Err: last}
		}
		if backoff > 0 {
			time.Sleep(backoff)
		}
	}
}
