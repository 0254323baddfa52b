package platform

import (
	"tinygo.org/x/drivers"

	"labtrack-go/drivers/rfid125"
	"labtrack-go/services/slave"
)

// Board is what the firmware entry point wires together.
type Board struct {
	Reader *rfid125.Reader
	Panel  *Panel
	Engine *slave.Engine
	LCD    drivers.I2C // nil when the display is disabled
}
