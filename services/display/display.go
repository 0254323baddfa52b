// Package display renders the supervisor snapshot on the character LCD.
package display

import (
	"context"

	"labtrack-go/bus"
	"labtrack-go/types"
	"labtrack-go/x/conv"
	"labtrack-go/x/strx"
)

// Screen is the two-line text surface (grovelcd.Device on hardware).
type Screen interface {
	SetText(line0, line1 string) error
}

var topicStatus = bus.T("monitor", "status")

// Lines formats a snapshot as the two display lines.
func Lines(s types.Snapshot) (string, string) {
	top := strx.Coalesce(s.Label, "labtrack")
	switch s.State {
	case types.StateAbsent:
		return top, "ABSENT " + mmss(s.TimerLeft)
	case types.StateAlert:
		return top, "ALERT!"
	default:
		if s.Acknowledged {
			return top, "ACK - NO TAG"
		}
		return top, "PRESENT"
	}
}

func mmss(sec uint16) string {
	return conv.Pad(uint64(sec/60), 2) + ":" + conv.Pad(uint64(sec%60), 2)
}

// Run redraws the screen on every snapshot until ctx is cancelled. Identical
// frames are not rewritten.
func Run(ctx context.Context, conn *bus.Connection, scr Screen) {
	sub := conn.Subscribe(topicStatus)
	defer conn.Unsubscribe(sub)

	var last [2]string
	drawn := false
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-sub.Channel():
			snap, ok := m.Payload.(types.Snapshot)
			if !ok {
				continue
			}
			l0, l1 := Lines(snap)
			if drawn && last == [2]string{l0, l1} {
				continue
			}
			if err := scr.SetText(l0, l1); err != nil {
				println("[display] write:", err.Error())
				drawn = false
				continue
			}
			last, drawn = [2]string{l0, l1}, true
		}
	}
}
