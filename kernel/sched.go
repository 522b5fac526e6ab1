package kernel

import "fmt"

// dispatch selects the next task to run: the first eligible member of the
// most urgent non-empty level, or idle. The caller has already moved the
// previous task out of RUNNING.
func (k *Kernel) dispatch() {
	for p := range k.ready {
		if r := k.tasks.popEligible(&k.ready[p]); r != none {
			k.switchTo(r)
			return
		}
	}
	k.switchTo(k.idle)
}

func (k *Kernel) switchTo(r ref) {
	t := k.tasks.get(r)
	t.state = Running
	if k.cur != r {
		k.trace.push(TraceEvent{Tick: k.ticks, From: k.current().pid, To: t.pid, Priority: t.prio})
	}
	k.cur = r
}

// eligibleAbove reports whether any level more urgent than p has a task
// that could run.
func (k *Kernel) eligibleAbove(p Priority) bool {
	for i := 0; i < int(p) && i < levels; i++ {
		if k.tasks.hasEligible(&k.ready[i]) {
			return true
		}
	}
	return false
}

// preempt gives the processor away if the current task is still running
// and something strictly more urgent is ready. The preempted task goes to
// the front of its level so it resumes before its peers.
func (k *Kernel) preempt() {
	t := k.current()
	if t.state != Running || !k.eligibleAbove(t.prio) {
		return
	}
	t.state = Ready
	if k.cur != k.idle {
		k.tasks.pushFront(&k.ready[t.prio], k.cur)
	}
	k.dispatch()
}

// setPriority changes a task's effective priority, moving it between
// ready queues if it is queued on one.
func (k *Kernel) setPriority(r ref, p Priority) {
	t := k.tasks.get(r)
	if t.prio == p {
		return
	}
	if t.state == Ready && r != k.idle {
		k.tasks.remove(&k.ready[t.prio], r)
		t.prio = p
		k.tasks.push(&k.ready[p], r)
		return
	}
	t.prio = p
}

func (k *Kernel) create(entry func(*Context), prio Priority, arg int) (PID, error) {
	if prio > MinPriority {
		return 0, &Error{Code: ErrBadPriority, PID: k.current().pid, Detail: fmt.Sprintf("priority %d", prio)}
	}
	r, ok := k.tasks.alloc()
	if !ok {
		return 0, &Error{Code: ErrTooManyTasks, PID: k.current().pid, Detail: fmt.Sprintf("limit %d", k.cfg.Tasks)}
	}
	t := k.tasks.get(r)
	t.base, t.prio, t.arg = prio, prio, arg
	c := &Context{k: k, pid: t.pid, slot: r}
	t.frame = k.sw.NewFrame(func() { k.runTask(c, entry) })
	c.frame = t.frame
	t.state = Ready
	k.tasks.push(&k.ready[prio], r)

	k.log.WithField("pid", t.pid).WithField("priority", prio).Debug("task created")
	return t.pid, nil
}

// runTask is the body of every task frame. Returning from entry is an
// implicit Terminate; a panic aborts the kernel.
func (k *Kernel) runTask(c *Context, entry func(*Context)) {
	defer func() {
		if r := recover(); r != nil {
			c.trap(abortReq{code: FailTaskPanic, detail: fmt.Sprint(r), stack: captureStack()})
		}
	}()
	entry(c)
	c.Terminate()
}

func (k *Kernel) lookupTask(pid PID) ref {
	r := k.tasks.lookup(pid)
	if r == none {
		k.abort(ErrNoSuchTask, fmt.Sprintf("pid %d", pid))
	}
	return r
}

// suspend marks a task ineligible for dispatch. A task suspending itself
// keeps its place at the tail of its level and gives up the processor.
func (k *Kernel) suspend(pid PID) {
	r := k.lookupTask(pid)
	if r == none {
		return
	}
	t := k.tasks.get(r)
	t.suspended = true
	if r != k.cur {
		return
	}
	t.state = Ready
	k.tasks.push(&k.ready[t.prio], r)
	k.dispatch()
}

func (k *Kernel) resume(pid PID) {
	r := k.lookupTask(pid)
	if r == none {
		return
	}
	k.tasks.get(r).suspended = false
	k.preempt()
}

// terminate retires the current task. Mutexes it still holds pass to
// their waiters.
func (k *Kernel) terminate() {
	if k.cur == k.idle {
		return
	}
	r := k.cur
	t := k.tasks.get(r)
	k.releaseAll(r)
	k.sw.Release(t.frame)
	k.tasks.free(r)
	k.log.WithField("pid", t.pid).Debug("task terminated")
	k.dispatch()
}
