// Package config holds the typed device configuration, the embedded per-board
// defaults and the normalize/validate pipeline. Host builds can also load
// YAML from disk.
package config

import (
	"context"
	"strings"
	"time"

	"labtrack-go/bus"
	"labtrack-go/errcode"
	"labtrack-go/services/slave"
	"labtrack-go/x/conv"
	"labtrack-go/x/mathx"
	"labtrack-go/x/strx"
	"labtrack-go/x/timex"
)

const configPrefix = "config"

// TopicEquipment carries the retained EquipmentConfig picked up by the
// monitor at runtime.
var TopicEquipment = bus.T(configPrefix, "equipment")

type Config struct {
	Board      string           `yaml:"board"`
	Equipment  EquipmentConfig  `yaml:"equipment"`
	Presence   PresenceConfig   `yaml:"presence"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Alarm      AlarmConfig      `yaml:"alarm"`
	Slave      SlaveConfig      `yaml:"slave"`
	Display    DisplayConfig    `yaml:"display"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Gateway    GatewayConfig    `yaml:"gateway"`
}

type EquipmentConfig struct {
	Label        string `yaml:"label"`
	GraceSeconds int    `yaml:"grace_seconds"`
}

type PresenceConfig struct {
	PollMs        int  `yaml:"poll_ms"`
	MissThreshold int  `yaml:"miss_threshold"`
	EnforceAllow  bool `yaml:"enforce_allow_list"`
}

type SupervisorConfig struct {
	ReceiveTimeoutMs int `yaml:"receive_timeout_ms"`
	QueueLen         int `yaml:"queue_len"`
}

type AlarmConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

type SlaveConfig struct {
	Address   int      `yaml:"address"`
	AllowList []string `yaml:"allow_list"`
}

type DisplayConfig struct {
	Enabled   bool `yaml:"enabled"`
	Address   int  `yaml:"address"`
	TimeoutMs int  `yaml:"timeout_ms"`
}

type HeartbeatConfig struct {
	IntervalS int `yaml:"interval_s"`
}

type GatewayConfig struct {
	PollMs     int             `yaml:"poll_ms"`
	AckAfterS  int             `yaml:"ack_after_s"` // 0 disables auto-acknowledge
	TimeoutMs  int             `yaml:"timeout_ms"`
	EventLog   string          `yaml:"event_log"`   // JSON-lines file; empty disables
	WebhookURL string          `yaml:"webhook_url"` // alarm notifications; empty disables
	Devices    []GatewayDevice `yaml:"devices"`
}

type GatewayDevice struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Address   int    `yaml:"address"`
	AckAfterS int    `yaml:"ack_after_s"` // 0 uses gateway.ack_after_s
}

// Default returns the board-independent defaults.
func Default() Config {
	return Config{
		Equipment:  EquipmentConfig{Label: "equipment", GraceSeconds: 6},
		Presence:   PresenceConfig{PollMs: 200, MissThreshold: 5},
		Supervisor: SupervisorConfig{ReceiveTimeoutMs: 100, QueueLen: 3},
		Alarm:      AlarmConfig{IntervalMs: 500},
		Slave:      SlaveConfig{Address: slave.AddressDefault},
		Display:    DisplayConfig{Enabled: true, Address: 0x3E, TimeoutMs: 50},
		Heartbeat:  HeartbeatConfig{IntervalS: 10},
		Gateway:    GatewayConfig{PollMs: 5000, TimeoutMs: 50},
	}
}

// Normalize fills zero values from Default and clamps the rest into range.
func (c *Config) Normalize() {
	d := Default()
	c.Equipment.Label = strx.Coalesce(c.Equipment.Label, d.Equipment.Label)
	c.Equipment.GraceSeconds = clampOr(c.Equipment.GraceSeconds, d.Equipment.GraceSeconds, 1, 0xFFFF)
	c.Presence.PollMs = clampOr(c.Presence.PollMs, d.Presence.PollMs, 50, 2000)
	c.Presence.MissThreshold = clampOr(c.Presence.MissThreshold, d.Presence.MissThreshold, 1, 255)
	c.Supervisor.ReceiveTimeoutMs = clampOr(c.Supervisor.ReceiveTimeoutMs, d.Supervisor.ReceiveTimeoutMs, 10, 1000)
	c.Supervisor.QueueLen = clampOr(c.Supervisor.QueueLen, d.Supervisor.QueueLen, 3, 64)
	c.Alarm.IntervalMs = clampOr(c.Alarm.IntervalMs, d.Alarm.IntervalMs, 50, 10000)
	if c.Slave.Address == 0 {
		c.Slave.Address = d.Slave.Address
	}
	if c.Display.Address == 0 {
		c.Display.Address = d.Display.Address
	}
	c.Display.TimeoutMs = clampOr(c.Display.TimeoutMs, d.Display.TimeoutMs, 5, 1000)
	c.Heartbeat.IntervalS = clampOr(c.Heartbeat.IntervalS, d.Heartbeat.IntervalS, 1, 3600)
	c.Gateway.PollMs = clampOr(c.Gateway.PollMs, d.Gateway.PollMs, 100, 60000)
	c.Gateway.TimeoutMs = clampOr(c.Gateway.TimeoutMs, d.Gateway.TimeoutMs, 5, 1000)
	c.Gateway.AckAfterS = mathx.Max(c.Gateway.AckAfterS, 0)
	for i := range c.Gateway.Devices {
		g := &c.Gateway.Devices[i]
		g.ID = strx.Coalesce(g.ID, "dev-"+conv.Itoa(g.Address))
		g.AckAfterS = mathx.Max(g.AckAfterS, 0)
	}
}

func clampOr(v, def, lo, hi int) int {
	if v == 0 {
		v = def
	}
	return mathx.Clamp(v, lo, hi)
}

func invalid(field, msg string) error {
	return &errcode.E{C: errcode.InvalidConfig, Op: "config." + field, Msg: msg}
}

func validAddr(a int) bool { return a >= 0x08 && a <= 0x77 }

// Validate rejects values that no clamp can repair. It does not mutate c.
func (c *Config) Validate() error {
	if !validAddr(c.Slave.Address) {
		return invalid("slave.address", "7-bit address outside 0x08..0x77")
	}
	if len(c.Slave.AllowList) > slave.MaxTags {
		return invalid("slave.allow_list", "more than "+conv.Itoa(slave.MaxTags)+" tags")
	}
	for _, t := range c.Slave.AllowList {
		if len(t) == 0 || len(t) > slave.MaxTagLen {
			return invalid("slave.allow_list", "tag length must be 1.."+conv.Itoa(slave.MaxTagLen))
		}
	}
	if c.Presence.EnforceAllow && len(c.Slave.AllowList) == 0 {
		return invalid("presence.enforce_allow_list", "needs at least one seeded tag")
	}
	if c.Display.Enabled && !validAddr(c.Display.Address) {
		return invalid("display.address", "7-bit address outside 0x08..0x77")
	}
	seen := map[int]bool{}
	for _, d := range c.Gateway.Devices {
		if !validAddr(d.Address) {
			return invalid("gateway.devices", d.ID+": address outside 0x08..0x77")
		}
		if seen[d.Address] {
			return invalid("gateway.devices", d.ID+": duplicate address")
		}
		seen[d.Address] = true
	}
	if u := c.Gateway.WebhookURL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return invalid("gateway.webhook_url", "must be an http(s) URL")
	}
	return nil
}

// Grace is the security timeout as a Duration.
func (c *Config) Grace() time.Duration {
	return time.Duration(c.Equipment.GraceSeconds) * time.Second
}

func (c *Config) PollPeriod() time.Duration     { return timex.Ms(c.Presence.PollMs) }
func (c *Config) ReceiveTimeout() time.Duration { return timex.Ms(c.Supervisor.ReceiveTimeoutMs) }
func (c *Config) AlarmInterval() time.Duration  { return timex.Ms(c.Alarm.IntervalMs) }

// Lookup returns the embedded config for a board, normalized.
func Lookup(board string) (Config, error) {
	c, ok := embeddedConfigs[board]
	if !ok {
		return Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.lookup", Msg: "no embedded config for board " + board}
	}
	c.Board = board
	c.Slave.AllowList = append([]string(nil), c.Slave.AllowList...)
	c.Gateway.Devices = append([]GatewayDevice(nil), c.Gateway.Devices...)
	c.Normalize()
	return c, c.Validate()
}

// Publish pushes the runtime-tunable sections as retained messages under
// config/<section>.
func Publish(conn *bus.Connection, c Config) {
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "heartbeat"),
		map[string]any{"interval": float64(c.Heartbeat.IntervalS)}, true))
	conn.Publish(conn.NewMessage(TopicEquipment, c.Equipment, true))
}

// Start publishes c once, in the background, like the other services.
func Start(ctx context.Context, conn *bus.Connection, c Config) {
	go func() {
		if ctx.Err() == nil {
			Publish(conn, c)
		}
	}()
}
