package supervisor

import (
	"time"

	"labtrack-go/services/slave"
	"labtrack-go/types"
)

// Record is the equipment record for the single monitored asset. Only the
// supervisor mutates it, under its mutex.
type Record struct {
	Tag          [slave.TagSize]byte
	TagLen       uint8
	Label        string
	Grace        time.Duration
	LastAbsentAt time.Time
	State        types.State
	Registered   bool // a tag id has been read for this asset
	Acknowledged bool // host silenced the alarm; tag not yet seen again
}

func (r Record) TagString() string { return string(r.Tag[:r.TagLen]) }

func (r *Record) setTag(tag []byte) {
	if len(tag) > slave.MaxTagLen {
		tag = tag[:slave.MaxTagLen]
	}
	r.Tag = [slave.TagSize]byte{}
	copy(r.Tag[:], tag)
	r.TagLen = uint8(len(tag))
	r.Registered = true
}

// statusBits is the STATUS projection of the record.
func (r *Record) statusBits() uint8 {
	switch r.State {
	case types.StateAbsent:
		return slave.StatusTimerRunning
	case types.StateAlert:
		return slave.StatusAlarmActive
	default:
		if r.Acknowledged {
			return 0
		}
		return slave.StatusTagPresent
	}
}
