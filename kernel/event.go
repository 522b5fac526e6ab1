package kernel

import "fmt"

// EventID names an event. The zero value is never a valid handle.
type EventID uint8

// event is a binary, sticky signal: a signal with no waiter is kept until
// the next wait consumes it.
type event struct {
	used    bool
	sticky  bool
	waiters queue
}

func (k *Kernel) eventInit() (EventID, error) {
	if k.nevent >= k.cfg.Events {
		return 0, &Error{Code: ErrTooManyEvents, PID: k.current().pid, Detail: fmt.Sprintf("limit %d", k.cfg.Events)}
	}
	i := k.nevent
	k.nevent++
	k.events[i] = event{used: true}
	return EventID(i + 1), nil
}

func (k *Kernel) eventFor(id EventID) *event {
	i := int(id) - 1
	if id == 0 || i >= k.nevent || !k.events[i].used {
		k.abort(ErrNoSuchEvent, fmt.Sprintf("event %d", id))
		return nil
	}
	return &k.events[i]
}

func (k *Kernel) wait(id EventID) {
	e := k.eventFor(id)
	if e == nil {
		return
	}
	if e.sticky {
		e.sticky = false
		return
	}
	if k.cur == k.idle {
		k.abort(FailInvariant, "idle task cannot wait")
		return
	}
	k.current().state = Waiting
	k.tasks.push(&e.waiters, k.cur)
	k.dispatch()
}

func (k *Kernel) signal(id EventID) {
	e := k.eventFor(id)
	if e == nil {
		return
	}
	r := k.tasks.pop(&e.waiters)
	if r == none {
		e.sticky = true
		return
	}
	t := k.tasks.get(r)
	t.state = Ready
	k.tasks.push(&k.ready[t.prio], r)
	k.preempt()
}
