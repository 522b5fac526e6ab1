package kernel

const traceSlots = 64

// TraceEvent records one context switch.
type TraceEvent struct {
	Tick     uint64
	From, To PID
	Priority Priority
}

// traceRing keeps the most recent switches; when full the oldest entry
// is overwritten and counted as dropped.
type traceRing struct {
	head    uint32
	tail    uint32
	dropped uint32
	slots   [traceSlots]TraceEvent
}

func (tr *traceRing) push(ev TraceEvent) {
	if tr.head-tr.tail >= traceSlots {
		tr.tail++
		tr.dropped++
	}
	tr.slots[tr.head%traceSlots] = ev
	tr.head++
}

func (tr *traceRing) pop() (TraceEvent, bool) {
	if tr.tail == tr.head {
		return TraceEvent{}, false
	}
	ev := tr.slots[tr.tail%traceSlots]
	tr.tail++
	return ev, true
}

// Trace drains recorded switches into dst and returns the extended slice.
func (k *Kernel) Trace(dst []TraceEvent) []TraceEvent {
	k.mu.Lock()
	defer k.mu.Unlock()
	for {
		ev, ok := k.trace.pop()
		if !ok {
			return dst
		}
		dst = append(dst, ev)
	}
}
