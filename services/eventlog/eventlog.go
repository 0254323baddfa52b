//go:build !tinygo

// Package eventlog records gateway events on the host: a persistent
// JSON-lines log and a webhook for alarm notifications.
package eventlog

import (
	"context"
	"time"

	"labtrack-go/bus"
	"labtrack-go/types"
)

// Entry is one logged event.
type Entry struct {
	Timestamp  string `json:"timestamp"`
	EventType  string `json:"event_type"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Message    string `json:"message"`
}

// Handler consumes gateway events. Handlers run on the subscriber goroutine
// one at a time.
type Handler interface {
	Handle(ctx context.Context, ev types.GatewayEvent) error
}

func messageOf(ev types.GatewayEvent) string {
	switch ev.Kind {
	case types.ObjectRemoved:
		return "equipment removed from its place"
	case types.ObjectReturned:
		return "equipment returned to its place"
	case types.AlarmStarted:
		return "alarm started"
	case types.AlarmStopped:
		return "alarm stopped"
	case types.AlarmAcked:
		return "alarm acknowledged by the gateway"
	case types.DeviceLost:
		return "device not answering: " + ev.Err
	}
	return string(ev.Kind)
}

// EntryOf converts a gateway event to its log form.
func EntryOf(ev types.GatewayEvent) Entry {
	ts := time.Now()
	if ev.TS != 0 {
		ts = time.UnixMilli(ev.TS)
	}
	return Entry{
		Timestamp:  ts.Format(time.RFC3339Nano),
		EventType:  string(ev.Kind),
		DeviceID:   ev.Device,
		DeviceName: ev.Name,
		Message:    messageOf(ev),
	}
}

// Run subscribes to every device's event topic and passes each event to the
// handlers in order until ctx is cancelled.
func Run(ctx context.Context, conn *bus.Connection, handlers ...Handler) {
	sub := conn.Subscribe(bus.T("gateway", "+", "event"))
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-sub.Channel():
			ev, ok := m.Payload.(types.GatewayEvent)
			if !ok {
				continue
			}
			for _, h := range handlers {
				if err := h.Handle(ctx, ev); err != nil {
					println("[eventlog]", ev.Device, string(ev.Kind), "handler error:", err.Error())
				}
			}
		}
	}
}
