package slave

import "sync/atomic"

// Mailbox is the single-slot command hand-off from the bus handler to the
// supervisor task. A newer command overwrites an unread one.
type Mailbox struct{ v atomic.Uint32 }

func (m *Mailbox) Post(c Command) { m.v.Store(uint32(c)) }

// Take returns the pending command and leaves CmdNop behind.
func (m *Mailbox) Take() Command { return Command(m.v.Swap(uint32(CmdNop))) }
