package main

import (
	"context"
	"time"

	"labtrack-go/bus"
	"labtrack-go/drivers/grovelcd"
	"labtrack-go/platform"
	"labtrack-go/services/config"
	"labtrack-go/services/display"
	"labtrack-go/services/heartbeat"
	"labtrack-go/services/monitor"
	"labtrack-go/x/timex"
)

const board = "pico"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	cfg, err := config.Lookup(board)
	if err != nil {
		println("[main] config:", err.Error())
		return
	}

	ctx := context.Background()
	b := bus.NewBus(4)

	brd, err := platform.Open(ctx, cfg)
	if err != nil {
		println("[main] platform:", err.Error())
		return
	}
	brd.Panel.StartupPattern()

	svc := monitor.New(cfg, monitor.Resources{
		Sensor:    brd.Reader,
		Actuators: brd.Panel,
		Engine:    brd.Engine,
		Conn:      b.NewConnection("monitor"),
	})

	config.Start(ctx, b.NewConnection("config"), cfg)
	hb := &heartbeat.Service{Interval: time.Duration(cfg.Heartbeat.IntervalS) * time.Second, Stats: svc.Heartbeat}
	if err := hb.Start(ctx, b.NewConnection("hb")); err != nil {
		println("[main] heartbeat:", err.Error())
	}

	if brd.LCD != nil {
		lcd := grovelcd.New(brd.LCD, grovelcd.Config{
			Address: uint16(cfg.Display.Address),
			Timeout: timex.Ms(cfg.Display.TimeoutMs),
		})
		if err := lcd.Configure(); err != nil {
			println("[main] display:", err.Error())
		} else {
			go display.Run(ctx, b.NewConnection("display"), lcd)
		}
	}

	svc.Run(ctx)
}
