// Command labtrack-sim runs the supervision firmware against a simulated
// board on the host, with the gateway polling it over a loopback bus.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"labtrack-go/bus"
	"labtrack-go/drivers/grovelcd"
	"labtrack-go/drivers/rfid125"
	"labtrack-go/platform"
	"labtrack-go/services/config"
	"labtrack-go/services/display"
	"labtrack-go/services/eventlog"
	"labtrack-go/services/gateway"
	"labtrack-go/services/heartbeat"
	"labtrack-go/services/monitor"
	"labtrack-go/types"
	"labtrack-go/x/timex"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// step is one scripted phase: tag in or out of range for a duration, or a
// switch of the tag id the reader reports.
type step struct {
	in  bool
	dur time.Duration
	tag string
}

// parseScript reads "in:2s,out:10s,tag:FFFFFFFFFF,in:3s".
func parseScript(s string) ([]step, error) {
	var out []step
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, arg, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("script step %q: want in:<dur>, out:<dur> or tag:<id>", part)
		}
		if kind == "tag" {
			if _, err := rfid125.ParseTag(rfid125.Frame(arg)); err != nil || len(arg) != rfid125.IDLen {
				return nil, fmt.Errorf("script step %q: tag id must be %d hex digits", part, rfid125.IDLen)
			}
			out = append(out, step{tag: arg})
			continue
		}
		d, err := time.ParseDuration(arg)
		if err != nil {
			return nil, fmt.Errorf("script step %q: %w", part, err)
		}
		switch kind {
		case "in":
			out = append(out, step{in: true, dur: d})
		case "out":
			out = append(out, step{in: false, dur: d})
		default:
			return nil, fmt.Errorf("script step %q: unknown phase %q", part, kind)
		}
	}
	if firstPresence(out) == nil {
		return nil, fmt.Errorf("script has no in/out step")
	}
	return out, nil
}

func firstPresence(steps []step) *step {
	for i := range steps {
		if steps[i].tag == "" {
			return &steps[i]
		}
	}
	return nil
}

func run() error {
	var cfgPath, script, eventLog string
	var noGateway bool

	flagSet := pflag.NewFlagSet("labtrack-sim", pflag.ContinueOnError)
	flagSet.StringVarP(&cfgPath, "config", "c", "", "YAML config file (default: embedded sim config)")
	flagSet.StringVar(&script, "script", "in:2s,out:5s,in:3s", "tag presence script, e.g. in:2s,out:10s,tag:FFFFFFFFFF,in:3s")
	flagSet.StringVar(&eventLog, "event-log", "", "append gateway events to this JSON-lines file (overrides gateway.event_log)")
	flagSet.BoolVar(&noGateway, "no-gateway", false, "do not run the host gateway poller")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage: labtrack-sim [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if eventLog != "" {
		cfg.Gateway.EventLog = eventLog
	}
	steps, err := parseScript(script)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := bus.NewBus(8)

	sim := platform.NewSim(cfg)
	sim.SetInRange(firstPresence(steps).in)
	go sim.Run(ctx)

	svc := monitor.New(cfg, monitor.Resources{
		Sensor:    sim.Reader,
		Actuators: sim.Panel,
		Engine:    sim.Engine,
		Conn:      b.NewConnection("monitor"),
	})

	config.Start(ctx, b.NewConnection("config"), cfg)
	hb := &heartbeat.Service{Interval: time.Duration(cfg.Heartbeat.IntervalS) * time.Second, Stats: svc.Heartbeat}
	if err := hb.Start(ctx, b.NewConnection("hb")); err != nil {
		return err
	}

	if scr := sim.Screen(); scr != nil {
		lcd := grovelcd.New(scr, grovelcd.Config{Address: uint16(cfg.Display.Address), Timeout: timex.Ms(cfg.Display.TimeoutMs)})
		if err := lcd.Configure(); err != nil {
			return err
		}
		go display.Run(ctx, b.NewConnection("display"), lcd)
	}

	if !noGateway && len(cfg.Gateway.Devices) > 0 {
		var devs []gateway.Device
		for _, d := range cfg.Gateway.Devices {
			devs = append(devs, gateway.Device{
				ID:       d.ID,
				Name:     d.Name,
				Address:  uint16(d.Address),
				AckAfter: time.Duration(d.AckAfterS) * time.Second,
			})
		}
		gw := gateway.New(sim.Bus(), b.NewConnection("gateway"), gateway.Config{
			Poll:     timex.Ms(cfg.Gateway.PollMs),
			AckAfter: time.Duration(cfg.Gateway.AckAfterS) * time.Second,
			Timeout:  timex.Ms(cfg.Gateway.TimeoutMs),
		}, devs)
		go gw.Run(ctx)
		go logEvents(ctx, b.NewConnection("log"))
		if hs := sinks(cfg); len(hs) > 0 {
			go eventlog.Run(ctx, b.NewConnection("eventlog"), hs...)
		}
	}

	done := make(chan struct{})
	go func() { svc.Run(ctx); close(done) }()

	for _, st := range steps {
		if st.tag != "" {
			sim.SetTag(st.tag)
			continue
		}
		sim.SetInRange(st.in)
		select {
		case <-time.After(st.dur):
		case <-ctx.Done():
		}
	}
	snap := svc.Snapshot()
	fmt.Printf("final: state=%s status=%#02x tag=%q\n", snap.State, snap.Status, snap.Tag)
	cancel()
	<-done
	return nil
}

// sinks builds the persistent event handlers named in the gateway config.
func sinks(cfg config.Config) []eventlog.Handler {
	var hs []eventlog.Handler
	if cfg.Gateway.EventLog != "" {
		hs = append(hs, &eventlog.File{Path: cfg.Gateway.EventLog})
	}
	if cfg.Gateway.WebhookURL != "" {
		hs = append(hs, &eventlog.Webhook{URL: cfg.Gateway.WebhookURL})
	}
	return hs
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Lookup("sim")
	}
	return config.Load(path)
}

func logEvents(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(bus.T("gateway", "+", "event"))
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-sub.Channel():
			if ev, ok := m.Payload.(types.GatewayEvent); ok {
				fmt.Printf("%s  %-16s %-10s status=%#02x left=%ds\n",
					time.UnixMilli(ev.TS).Format("15:04:05"), ev.Kind, ev.Name, ev.Status, ev.TimerLeft)
			}
		}
	}
}
