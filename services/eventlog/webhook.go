//go:build !tinygo

package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"labtrack-go/errcode"
	"labtrack-go/types"
	"labtrack-go/x/conv"
)

// Webhook posts alarm start and stop events to a chat-style webhook as
// {"content": "..."}. Other kinds are ignored.
type Webhook struct {
	URL     string
	Timeout time.Duration // per request; default 10s
	Client  *http.Client  // default http.DefaultClient
}

func notifies(k types.GatewayEventKind) bool {
	return k == types.AlarmStarted || k == types.AlarmStopped
}

func (w *Webhook) Handle(ctx context.Context, ev types.GatewayEvent) error {
	if w.URL == "" || !notifies(ev.Kind) {
		return nil
	}
	e := EntryOf(ev)
	body, err := json.Marshal(map[string]string{
		"content": "**" + e.EventType + "**\n**Device:** " + e.DeviceName + " (" + e.DeviceID + ")\n" +
			"**At:** " + e.Timestamp + "\n**Message:** " + e.Message,
	})
	if err != nil {
		return err
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "webhook.request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "labtrack-gateway/1.0")

	cli := w.Client
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(req)
	if err != nil {
		code := errcode.Error
		if reqCtx.Err() != nil {
			code = errcode.Timeout
		}
		return &errcode.E{C: code, Op: "webhook.post", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &errcode.E{C: errcode.Error, Op: "webhook.post", Msg: "status " + conv.Itoa(resp.StatusCode)}
	}
	println("[eventlog] webhook sent", e.DeviceID, e.EventType)
	return nil
}
