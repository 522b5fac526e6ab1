package kernel

// Context gives a task access to kernel operations. Every call records a
// request in the task's TCB and traps into the kernel; the call returns
// when the scheduler next selects the task.
type Context struct {
	k     *Kernel
	pid   PID
	slot  ref
	frame Frame
}

// TaskID returns the calling task's PID.
func (c *Context) TaskID() PID { return c.pid }

// Arg returns the argument the task was created with.
func (c *Context) Arg() int { return c.k.tasks.get(c.slot).arg }

func (c *Context) trap(req request) uint32 {
	t := c.k.tasks.get(c.slot)
	t.req = req
	c.k.sw.Enter(c.frame)
	return t.ret
}

// Create starts a new task. Exhausting the task table halts the kernel.
func (c *Context) Create(entry func(*Context), prio Priority, arg int) PID {
	return PID(c.trap(createReq{entry: entry, prio: prio, arg: arg}))
}

// Terminate ends the calling task. It does not return.
func (c *Context) Terminate() { c.trap(terminateReq{}) }

// Yield moves the caller behind its priority peers.
func (c *Context) Yield() { c.trap(yieldReq{}) }

// Sleep blocks the caller for n ticks. Sleep(0) waits for the next tick.
func (c *Context) Sleep(n Tick) { c.trap(sleepReq{ticks: n}) }

// Suspend makes a task ineligible to run until it is resumed. A task may
// suspend itself.
func (c *Context) Suspend(pid PID) { c.trap(suspendReq{pid: pid}) }

// Resume clears a task's suspend flag.
func (c *Context) Resume(pid PID) { c.trap(resumeReq{pid: pid}) }

func (c *Context) MutexInit() MutexID { return MutexID(c.trap(mutexInitReq{})) }

// Lock acquires m, blocking without timeout. The owner may lock again.
func (c *Context) Lock(m MutexID) { c.trap(lockReq{m: m}) }

// Unlock releases one hold on m. Unlocking a mutex the caller does not
// own halts the kernel.
func (c *Context) Unlock(m MutexID) { c.trap(unlockReq{m: m}) }

func (c *Context) EventInit() EventID { return EventID(c.trap(eventInitReq{})) }

// Wait blocks until e is signalled, or consumes a pending signal.
func (c *Context) Wait(e EventID) { c.trap(waitReq{e: e}) }

func (c *Context) Signal(e EventID) { c.trap(signalReq{e: e}) }

// Abort halts the kernel with a diagnostic code. It does not return.
func (c *Context) Abort(code Code, detail string) {
	c.trap(abortReq{code: code, detail: detail, stack: captureStack()})
}

// NowTick returns the kernel tick count.
func (c *Context) NowTick() uint64 { return c.k.Now() }
