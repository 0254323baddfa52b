package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Ms converts a millisecond count from config into a Duration.
func Ms(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// ResetTimer stops, drains and re-arms t. Negative durations fire immediately.
func ResetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		DrainTimer(t)
	}
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

// DrainTimer empties t.C without blocking.
func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}

// NewStoppedTimer returns a timer that is not armed and has an empty channel.
func NewStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		DrainTimer(t)
	}
	return t
}
