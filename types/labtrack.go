package types

// State is the supervisor lifecycle state.
type State uint8

const (
	StatePresent State = iota
	StateAbsent        // grace timer running
	StateAlert         // grace exceeded, alarm active
)

func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateAbsent:
		return "absent"
	case StateAlert:
		return "alert"
	default:
		return "unknown"
	}
}

// Snapshot is the retained projection of the supervisor, published on
// monitor/status after every cycle that changed it.
type Snapshot struct {
	Label        string `json:"label"`
	State        State  `json:"state"`
	Status       uint8  `json:"status"`     // STATUS register bits
	TimerLeft    uint16 `json:"timer_left"` // seconds
	Acknowledged bool   `json:"acknowledged,omitempty"`
	Tag          string `json:"tag,omitempty"`
	TS           int64  `json:"ts_ms"`
}

// Transition is published (not retained) on monitor/transition.
type Transition struct {
	From  State  `json:"from"`
	To    State  `json:"to"`
	Cause string `json:"cause"` // event or command name
	TS    int64  `json:"ts_ms"`
}

// GatewayEventKind names a host-observed change in a device's STATUS.
type GatewayEventKind string

const (
	ObjectRemoved  GatewayEventKind = "OBJECT_REMOVED"
	ObjectReturned GatewayEventKind = "OBJECT_RETURNED"
	AlarmStarted   GatewayEventKind = "ALARM_STARTED"
	AlarmStopped   GatewayEventKind = "ALARM_STOPPED"
	AlarmAcked     GatewayEventKind = "ALARM_ACKED"
	DeviceLost     GatewayEventKind = "DEVICE_LOST"
)

// GatewayEvent is published on gateway/<device>/event.
type GatewayEvent struct {
	Device    string           `json:"device"`
	Name      string           `json:"name"`
	Kind      GatewayEventKind `json:"kind"`
	Status    uint8            `json:"status"`
	TimerLeft uint16           `json:"timer_left"`
	Err       string           `json:"error,omitempty"`
	TS        int64            `json:"ts_ms"`
}

// Heartbeat is published on monitor/heartbeat.
type Heartbeat struct {
	UptimeS     int64  `json:"uptime_s"`
	State       State  `json:"state"`
	EventDrops  uint32 `json:"event_drops"`
	BusUnknown  uint32 `json:"bus_unknown"`
	BusErrors   uint32 `json:"bus_errors"`
	TagRejects  uint32 `json:"tag_rejects"`
	SensorBytes uint32 `json:"sensor_overruns"`
}

// LED names the indicator lamps.
type LED uint8

const (
	LEDRed LED = iota
	LEDGreen
	LEDBlue
	LEDBuiltin
)
