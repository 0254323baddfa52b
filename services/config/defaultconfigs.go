package config

// Embedded per-board configuration. Zero fields take Default values on
// Normalize.
var embeddedConfigs = map[string]Config{
	"pico": {
		Equipment: EquipmentConfig{Label: "bench-1", GraceSeconds: 6},
		Display:   DisplayConfig{Enabled: true},
		Heartbeat: HeartbeatConfig{IntervalS: 10},
	},
	"sim": {
		Equipment: EquipmentConfig{Label: "sim-scope", GraceSeconds: 3},
		Presence:  PresenceConfig{PollMs: 100, MissThreshold: 3},
		Slave:     SlaveConfig{AllowList: []string{"0A1B2C3D4E"}},
		Display:   DisplayConfig{Enabled: true},
		Heartbeat: HeartbeatConfig{IntervalS: 2},
		Gateway: GatewayConfig{
			PollMs:    500,
			AckAfterS: 10,
			Devices:   []GatewayDevice{{ID: "bench1", Name: "sim-scope", Address: 0x42}},
		},
	},
}
