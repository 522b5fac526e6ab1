package kernel

// sleep parks the current task for at least n ticks. Zero and one both
// mean "until the next tick".
func (k *Kernel) sleep(n Tick) {
	if k.cur == k.idle {
		return
	}
	t := k.current()
	t.state = Sleeping
	t.ticks = n
	k.tasks.insertSorted(&k.sleeping, k.cur)
	k.dispatch()
}

// wakeOne moves the sleep-queue head to its ready queue if its time has
// come.
func (k *Kernel) wakeOne() bool {
	r := k.sleeping.head
	if r == none || k.tasks.get(r).ticks > 0 {
		return false
	}
	k.tasks.pop(&k.sleeping)
	t := k.tasks.get(r)
	t.state = Ready
	k.tasks.push(&k.ready[t.prio], r)
	return true
}

// drainWakes applies every wake-up the tick handler has flagged. The
// caller decides when to preempt.
func (k *Kernel) drainWakes() bool {
	if !k.wakePending {
		return false
	}
	k.wakePending = false
	woke := false
	for k.wakeOne() {
		woke = true
	}
	return woke
}

// OnTick advances time by one period. It is the timer interrupt: it only
// counts down sleepers and flags the ones that are due; they are moved to
// the ready queues the next time the kernel is entered.
func (k *Kernel) OnTick() {
	k.mu.Lock()
	k.ticks++
	for r := k.sleeping.head; r != none; r = k.tasks.get(r).next {
		if t := k.tasks.get(r); t.ticks > 0 {
			t.ticks--
		}
	}
	due := !k.sleeping.empty() && k.tasks.get(k.sleeping.head).ticks == 0
	if due {
		k.wakePending = true
	}
	k.mu.Unlock()
	if due {
		k.notifyIdle()
	}
}

// Now returns the number of ticks since Init.
func (k *Kernel) Now() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ticks
}
