package kernel

// Stats is a point-in-time summary of the kernel.
type Stats struct {
	Ticks     uint64
	Current   PID
	Tasks     int
	Ready     int
	Blocked   int
	Waiting   int
	Sleeping  int
	Suspended int
	Mutexes   int
	Events    int
	Switches  uint32
	Dropped   uint32
	Active    bool
	Halted    bool
	// WakePending is set between a tick that made a sleeper due and the
	// kernel entry that wakes it.
	WakePending bool
}

// TaskInfo describes one live task.
type TaskInfo struct {
	PID       PID
	State     State
	Base      Priority
	Priority  Priority
	Boosted   bool
	Suspended bool
	Ticks     Tick
}

func (k *Kernel) Stats() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()

	s := Stats{
		Ticks:    k.ticks,
		Current:  k.current().pid,
		Tasks:    k.tasks.live,
		Mutexes:  k.nmutex,
		Events:   k.nevent,
		Switches: k.trace.head,
		Dropped:  k.trace.dropped,
		Active:   k.active,
		Halted:   k.halted,

		WakePending: k.wakePending,
	}
	for i := 0; i < idleSlot; i++ {
		t := &k.tasks.tcbs[i]
		switch t.state {
		case Ready:
			s.Ready++
		case Blocked:
			s.Blocked++
		case Waiting:
			s.Waiting++
		case Sleeping:
			s.Sleeping++
		}
		if t.state != Dead && t.suspended {
			s.Suspended++
		}
	}
	return s
}

// Snapshot appends every live task, idle excluded, to dst in table order.
func (k *Kernel) Snapshot(dst []TaskInfo) []TaskInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := 0; i < idleSlot; i++ {
		t := &k.tasks.tcbs[i]
		if t.state == Dead {
			continue
		}
		dst = append(dst, TaskInfo{
			PID:       t.pid,
			State:     t.state,
			Base:      t.base,
			Priority:  t.prio,
			Boosted:   t.saved != noBoost,
			Suspended: t.suspended,
			Ticks:     t.ticks,
		})
	}
	return dst
}
