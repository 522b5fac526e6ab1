package kernel

// PID identifies a task. PIDs are handed out in increasing order and are
// not reused while the holder is alive. PID 0 belongs to the idle task.
type PID uint16

// IdlePID is the PID of the idle task.
const IdlePID PID = 0

// Priority orders tasks; 0 is the most urgent.
type Priority uint8

// Tick counts timer periods.
type Tick uint32

// State is a task lifecycle state.
type State uint8

const (
	Dead State = iota
	Ready
	Running
	Blocked
	Waiting
	Sleeping
)

func (s State) String() string {
	switch s {
	case Dead:
		return "DEAD"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	case Waiting:
		return "WAITING"
	case Sleeping:
		return "SLEEPING"
	default:
		return "UNKNOWN"
	}
}

const noBoost int8 = -1

// tcb is a task control block.
type tcb struct {
	pid       PID
	state     State
	base      Priority
	prio      Priority
	saved     int8
	suspended bool
	ticks     Tick
	arg       int

	frame Frame
	req   request
	ret   uint32

	// blockedOn is the mutex a BLOCKED task waits for.
	blockedOn MutexID

	next   ref
	queued bool
}

const idleSlot = MaxTasks

type taskTable struct {
	tcbs    [MaxTasks + 1]tcb
	dead    queue
	live    int
	nextPID PID
}

func (tt *taskTable) get(r ref) *tcb { return &tt.tcbs[r.slot()] }

// reset clears every slot and threads the first limit slots onto the dead pool.
func (tt *taskTable) reset(limit int) {
	tt.tcbs = [MaxTasks + 1]tcb{}
	tt.dead = queue{}
	tt.live = 0
	tt.nextPID = 1
	for i := 0; i < limit; i++ {
		tt.tcbs[i].saved = noBoost
		tt.push(&tt.dead, refOf(i))
	}
}

// alloc takes a slot from the dead pool and assigns it a fresh PID.
func (tt *taskTable) alloc() (ref, bool) {
	r := tt.pop(&tt.dead)
	if r == none {
		return none, false
	}
	t := tt.get(r)
	*t = tcb{pid: tt.newPID(), saved: noBoost}
	tt.live++
	return r, true
}

func (tt *taskTable) newPID() PID {
	for {
		pid := tt.nextPID
		tt.nextPID++
		if pid == IdlePID {
			continue
		}
		if tt.lookup(pid) == none {
			return pid
		}
	}
}

// free returns a dead task's slot to the pool.
func (tt *taskTable) free(r ref) {
	t := tt.get(r)
	t.state = Dead
	t.frame = nil
	t.req = nil
	t.blockedOn = 0
	t.suspended = false
	tt.live--
	tt.push(&tt.dead, r)
}

// lookup finds the live, non-idle task with the given PID.
func (tt *taskTable) lookup(pid PID) ref {
	if pid == IdlePID {
		return none
	}
	for i := 0; i < idleSlot; i++ {
		t := &tt.tcbs[i]
		if t.state != Dead && t.pid == pid {
			return refOf(i)
		}
	}
	return none
}
