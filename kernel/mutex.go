package kernel

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// MutexID names a mutex. The zero value is never a valid handle.
type MutexID uint8

type mutexState uint8

const (
	mutexOpen mutexState = iota
	mutexFree
	mutexLocked
)

func (s mutexState) String() string {
	switch s {
	case mutexOpen:
		return "open"
	case mutexFree:
		return "free"
	case mutexLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// mutex is a recursive lock whose owner inherits the priority of its
// most urgent waiter.
type mutex struct {
	state   mutexState
	owner   ref
	count   int
	waiters queue
}

func (k *Kernel) mutexInit() (MutexID, error) {
	if k.nmutex >= k.cfg.Mutexes {
		return 0, &Error{Code: ErrTooManyMutexes, PID: k.current().pid, Detail: fmt.Sprintf("limit %d", k.cfg.Mutexes)}
	}
	i := k.nmutex
	k.nmutex++
	k.mutexes[i] = mutex{state: mutexFree}
	return MutexID(i + 1), nil
}

func (k *Kernel) mutexFor(id MutexID) *mutex {
	i := int(id) - 1
	if id == 0 || i >= k.nmutex || k.mutexes[i].state == mutexOpen {
		k.abort(ErrNoSuchMutex, fmt.Sprintf("mutex %d", id))
		return nil
	}
	return &k.mutexes[i]
}

func (k *Kernel) lock(id MutexID) {
	m := k.mutexFor(id)
	if m == nil {
		return
	}
	switch {
	case m.state == mutexFree:
		m.state = mutexLocked
		m.owner = k.cur
		m.count = 1
		return
	case m.owner == k.cur:
		m.count++
		return
	case k.cur == k.idle:
		k.abort(FailInvariant, "idle task cannot block")
		return
	}

	if k.cfg.DetectDeadlock {
		if cycle := k.waitCycle(k.cur, m.owner); cycle != nil {
			k.abort(FailDeadlock, fmt.Sprintf("mutex %d: wait cycle %v", id, cycle))
			return
		}
	}

	t := k.current()
	t.state = Blocked
	t.blockedOn = id
	k.tasks.push(&m.waiters, k.cur)
	k.inherit(m.owner, t.prio)
	k.dispatch()
}

func (k *Kernel) unlock(id MutexID) {
	m := k.mutexFor(id)
	if m == nil {
		return
	}
	if m.state != mutexLocked || m.owner != k.cur {
		k.abort(FailNotOwner, fmt.Sprintf("mutex %d", id))
		return
	}
	if m.count > 1 {
		m.count--
		return
	}
	k.handOff(m)
	k.settle(k.cur)
	k.preempt()
}

// handOff passes a mutex its owner is done with to the head waiter, or
// frees it.
func (k *Kernel) handOff(m *mutex) {
	w := k.tasks.pop(&m.waiters)
	if w == none {
		m.state = mutexFree
		m.owner = none
		m.count = 0
		return
	}
	m.owner = w
	m.count = 1
	t := k.tasks.get(w)
	t.blockedOn = 0
	k.settle(w)
	t.state = Ready
	k.tasks.push(&k.ready[t.prio], w)
}

// inherit raises r to at least p, following the chain of owners r is
// itself blocked behind.
func (k *Kernel) inherit(r ref, p Priority) {
	for r != none {
		t := k.tasks.get(r)
		if t.prio <= p {
			return
		}
		if t.saved == noBoost {
			t.saved = int8(t.base)
		}
		k.setPriority(r, p)
		if t.state != Blocked {
			return
		}
		r = k.mutexes[t.blockedOn-1].owner
	}
}

// settle recomputes r's effective priority from its base and the waiters
// of every mutex it still owns, dropping the boost record when nothing
// requires it.
func (k *Kernel) settle(r ref) {
	t := k.tasks.get(r)
	p := t.base
	for i := 0; i < k.nmutex; i++ {
		m := &k.mutexes[i]
		if m.state != mutexLocked || m.owner != r {
			continue
		}
		for w := m.waiters.head; w != none; w = k.tasks.get(w).next {
			if wp := k.tasks.get(w).prio; wp < p {
				p = wp
			}
		}
	}
	if p == t.base {
		t.saved = noBoost
	} else if t.saved == noBoost {
		t.saved = int8(t.base)
	}
	k.setPriority(r, p)
}

// releaseAll hands every mutex r still holds to its next waiter.
func (k *Kernel) releaseAll(r ref) {
	for i := 0; i < k.nmutex; i++ {
		m := &k.mutexes[i]
		if m.state != mutexLocked || m.owner != r {
			continue
		}
		k.log.WithFields(logrus.Fields{
			"pid":   k.tasks.get(r).pid,
			"mutex": i + 1,
			"count": m.count,
		}).Warn("task terminated holding mutex")
		k.handOff(m)
	}
}
