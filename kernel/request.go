package kernel

// RequestKind tags a kernel request.
type RequestKind uint8

const (
	ReqNone RequestKind = iota
	ReqCreate
	ReqNext
	ReqYield
	ReqSuspend
	ReqResume
	ReqTerminate
	ReqSleep
	ReqWake
	ReqMutexInit
	ReqLock
	ReqUnlock
	ReqEventInit
	ReqEventWait
	ReqEventSignal
	ReqAbort
)

func (k RequestKind) String() string {
	switch k {
	case ReqNone:
		return "NONE"
	case ReqCreate:
		return "CREATE"
	case ReqNext:
		return "NEXT"
	case ReqYield:
		return "YIELD"
	case ReqSuspend:
		return "SUSPEND"
	case ReqResume:
		return "RESUME"
	case ReqTerminate:
		return "TERMINATE"
	case ReqSleep:
		return "SLEEP"
	case ReqWake:
		return "WAKE"
	case ReqMutexInit:
		return "MUTEX_INIT"
	case ReqLock:
		return "LOCK"
	case ReqUnlock:
		return "UNLOCK"
	case ReqEventInit:
		return "EVENT_INIT"
	case ReqEventWait:
		return "EVENT_WAIT"
	case ReqEventSignal:
		return "EVENT_SIGNAL"
	case ReqAbort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}

// request is one kernel call together with its arguments. A task stores
// its request in its own TCB before trapping.
type request interface {
	kind() RequestKind
}

type (
	createReq struct {
		entry func(*Context)
		prio  Priority
		arg   int
	}
	nextReq      struct{}
	yieldReq     struct{}
	suspendReq   struct{ pid PID }
	resumeReq    struct{ pid PID }
	terminateReq struct{}
	sleepReq     struct{ ticks Tick }
	wakeReq      struct{}
	mutexInitReq struct{}
	lockReq      struct{ m MutexID }
	unlockReq    struct{ m MutexID }
	eventInitReq struct{}
	waitReq      struct{ e EventID }
	signalReq    struct{ e EventID }
	abortReq     struct {
		code   Code
		detail string
		stack  []byte
	}
)

func (createReq) kind() RequestKind    { return ReqCreate }
func (nextReq) kind() RequestKind      { return ReqNext }
func (yieldReq) kind() RequestKind     { return ReqYield }
func (suspendReq) kind() RequestKind   { return ReqSuspend }
func (resumeReq) kind() RequestKind    { return ReqResume }
func (terminateReq) kind() RequestKind { return ReqTerminate }
func (sleepReq) kind() RequestKind     { return ReqSleep }
func (wakeReq) kind() RequestKind      { return ReqWake }
func (mutexInitReq) kind() RequestKind { return ReqMutexInit }
func (lockReq) kind() RequestKind      { return ReqLock }
func (unlockReq) kind() RequestKind    { return ReqUnlock }
func (eventInitReq) kind() RequestKind { return ReqEventInit }
func (waitReq) kind() RequestKind      { return ReqEventWait }
func (signalReq) kind() RequestKind    { return ReqEventSignal }
func (abortReq) kind() RequestKind     { return ReqAbort }

// handle resolves exactly one request on behalf of the current task.
func (k *Kernel) handle(req request) {
	if req == nil {
		k.abort(FailInvariant, "kernel entered without a request")
		return
	}
	k.debugRequest(req)

	switch r := req.(type) {
	case createReq:
		pid, err := k.create(r.entry, r.prio, r.arg)
		if err != nil {
			k.abortErr(err)
			return
		}
		k.reply(uint32(pid))
		k.preempt()
	case nextReq:
		k.current().state = Ready
		k.dispatch()
	case yieldReq:
		t := k.current()
		t.state = Ready
		if k.cur != k.idle {
			k.tasks.push(&k.ready[t.prio], k.cur)
		}
		k.dispatch()
	case suspendReq:
		k.suspend(r.pid)
	case resumeReq:
		k.resume(r.pid)
	case terminateReq:
		k.terminate()
	case sleepReq:
		k.sleep(r.ticks)
	case wakeReq:
		if k.wakeOne() {
			k.preempt()
		}
	case mutexInitReq:
		id, err := k.mutexInit()
		if err != nil {
			k.abortErr(err)
			return
		}
		k.reply(uint32(id))
	case lockReq:
		k.lock(r.m)
	case unlockReq:
		k.unlock(r.m)
	case eventInitReq:
		id, err := k.eventInit()
		if err != nil {
			k.abortErr(err)
			return
		}
		k.reply(uint32(id))
	case waitReq:
		k.wait(r.e)
	case signalReq:
		k.signal(r.e)
	case abortReq:
		k.abortWith(r.code, r.detail, r.stack)
	default:
		k.abort(FailInvariant, "unknown request")
	}
}

func (k *Kernel) reply(v uint32) {
	k.current().ret = v
}
