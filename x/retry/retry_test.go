package retry

import (
	"errors"
	"testing"
	"time"

	"labtrack-go/errcode"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do("probe", 100*time.Millisecond, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errcode.Nack
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoTimesOutWithTypedError(t *testing.T) {
	start := time.Now()
	err := Do("lcd.cmd", 20*time.Millisecond, 2*time.Millisecond, func() error { return errcode.Nack })
	if errcode.Of(err) != errcode.Timeout {
		t.Fatalf("code = %q, want timeout", errcode.Of(err))
	}
	if !errors.Is(err, errcode.Nack) {
		t.Fatal("last error should be wrapped")
	}
	if el := time.Since(start); el > 200*time.Millisecond {
		t.Fatalf("retry overran its budget: %v", el)
	}
}

func TestDoTriesOnceWithZeroTimeout(t *testing.T) {
	calls := 0
	_ = Do("once", 0, 0, func() error { calls++; return errcode.Busy })
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
