package timex

import (
	"testing"
	"time"
)

func TestStoppedTimerThenReset(t *testing.T) {
	tm := NewStoppedTimer()
	select {
	case <-tm.C:
		t.Fatal("stopped timer fired")
	case <-time.After(10 * time.Millisecond):
	}
	ResetTimer(tm, 5*time.Millisecond)
	select {
	case <-tm.C:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("reset timer did not fire")
	}
}

func TestResetDiscardsStaleFire(t *testing.T) {
	tm := time.NewTimer(time.Millisecond)
	time.Sleep(5 * time.Millisecond) // fired, value pending in C
	ResetTimer(tm, time.Hour)
	select {
	case <-tm.C:
		t.Fatal("stale fire leaked through reset")
	case <-time.After(10 * time.Millisecond):
	}
}
