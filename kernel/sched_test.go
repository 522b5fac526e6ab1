package kernel

import (
	"errors"
	"testing"
)

func TestDispatchFallsBackToIdle(t *testing.T) {
	k := newStepKernel(t, Config{})
	boot(k)
	expectRunning(t, k, IdlePID)
	if s := k.current().state; s != Running {
		t.Fatalf("idle state = %s, want RUNNING", s)
	}
}

func TestDispatchHighestPriorityFirst(t *testing.T) {
	k := newStepKernel(t, Config{})
	low := mustCreate(t, k, 7)
	high := mustCreate(t, k, 2)
	mid := mustCreate(t, k, 4)
	boot(k)

	expectRunning(t, k, high)
	enter(k, terminateReq{})
	expectRunning(t, k, mid)
	enter(k, terminateReq{})
	expectRunning(t, k, low)
	enter(k, terminateReq{})
	expectRunning(t, k, IdlePID)
}

func TestRoundRobinWithinLevel(t *testing.T) {
	k := newStepKernel(t, Config{})
	a := mustCreate(t, k, 3)
	b := mustCreate(t, k, 3)
	c := mustCreate(t, k, 3)
	boot(k)

	want := []PID{a, b, c, a, b, c, a}
	for i, pid := range want {
		expectRunning(t, k, pid)
		if i < len(want)-1 {
			enter(k, yieldReq{})
		}
	}
}

func TestCreatePreemptsLessUrgentCreator(t *testing.T) {
	k := newStepKernel(t, Config{})
	a := mustCreate(t, k, 5)
	b := mustCreate(t, k, 5)
	boot(k)
	expectRunning(t, k, a)

	enter(k, createReq{entry: nop, prio: 1})
	if ret := taskOf(t, k, a).ret; ret == 0 {
		t.Fatalf("create reply = 0, want new pid")
	}
	c := PID(taskOf(t, k, a).ret)
	expectRunning(t, k, c)

	got := readyPIDs(k, 5)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("ready[5] = %v, want [%d %d]", got, a, b)
	}

	enter(k, terminateReq{})
	expectRunning(t, k, a)
}

func TestCreateSamePriorityDoesNotPreempt(t *testing.T) {
	k := newStepKernel(t, Config{})
	a := mustCreate(t, k, 5)
	boot(k)
	enter(k, createReq{entry: nop, prio: 5})
	expectRunning(t, k, a)
}

func TestCreateErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tasks = 2
	k := newStepKernel(t, cfg)

	if _, err := k.Create(nop, MinPriority+1, 0); !errors.Is(err, ErrNoSuchObject) {
		t.Fatalf("expected bad priority error, got %v", err)
	}
	mustCreate(t, k, 1)
	mustCreate(t, k, 1)

	_, err := k.Create(nop, 1, 0)
	var kerr *Error
	if !errors.As(err, &kerr) || kerr.Code != ErrTooManyTasks {
		t.Fatalf("expected ErrTooManyTasks, got %v", err)
	}
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted class, got %v", err)
	}
}

func TestCreateExhaustionAborts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tasks = 1
	k := newStepKernel(t, cfg)
	a := mustCreate(t, k, 1)
	boot(k)

	enter(k, createReq{entry: nop, prio: 1})
	info := expectAbort(t, k, ErrTooManyTasks)
	if info.PID != a {
		t.Fatalf("abort pid = %d, want %d", info.PID, a)
	}
}

func TestPreStartAPIRejectedOnceActive(t *testing.T) {
	k := newStepKernel(t, Config{})
	mustCreate(t, k, 1)
	boot(k)
	if _, err := k.Create(nop, 1, 0); !errors.Is(err, ErrStarted) {
		t.Fatalf("expected ErrStarted, got %v", err)
	}
	if _, err := k.MutexInit(); !errors.Is(err, ErrStarted) {
		t.Fatalf("expected ErrStarted, got %v", err)
	}
	if _, err := k.EventInit(); !errors.Is(err, ErrStarted) {
		t.Fatalf("expected ErrStarted, got %v", err)
	}
}

func TestArgIsCaptured(t *testing.T) {
	k := newStepKernel(t, Config{})
	pid, err := k.Create(nop, 1, 42)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	c := &Context{k: k, pid: pid, slot: k.tasks.lookup(pid)}
	if got := c.Arg(); got != 42 {
		t.Fatalf("Arg() = %d, want 42", got)
	}
}

func TestSuspendResumeKeepsPosition(t *testing.T) {
	k := newStepKernel(t, Config{})
	a := mustCreate(t, k, 3)
	b := mustCreate(t, k, 3)
	c := mustCreate(t, k, 3)
	boot(k)

	enter(k, suspendReq{pid: b})
	expectRunning(t, k, a)

	enter(k, yieldReq{})
	expectRunning(t, k, c)
	enter(k, yieldReq{})
	expectRunning(t, k, a)

	enter(k, resumeReq{pid: b})
	expectRunning(t, k, a)

	enter(k, yieldReq{})
	expectRunning(t, k, b)
	enter(k, yieldReq{})
	expectRunning(t, k, c)
}

func TestSuspendSelf(t *testing.T) {
	k := newStepKernel(t, Config{})
	a := mustCreate(t, k, 3)
	b := mustCreate(t, k, 4)
	boot(k)

	enter(k, suspendReq{pid: a})
	expectRunning(t, k, b)
	ta := taskOf(t, k, a)
	if ta.state != Ready || !ta.suspended {
		t.Fatalf("suspended task state = %s/%v, want READY/true", ta.state, ta.suspended)
	}

	enter(k, resumeReq{pid: a})
	expectRunning(t, k, a)
	if got := readyPIDs(k, 4); len(got) != 1 || got[0] != b {
		t.Fatalf("ready[4] = %v, want [%d]", got, b)
	}
}

func TestSuspendedTaskNeverDispatched(t *testing.T) {
	k := newStepKernel(t, Config{})
	a := mustCreate(t, k, 1)
	b := mustCreate(t, k, 5)
	boot(k)

	enter(k, suspendReq{pid: a})
	expectRunning(t, k, b)
	for i := 0; i < 5; i++ {
		enter(k, yieldReq{})
		expectRunning(t, k, b)
	}
	enter(k, terminateReq{})
	expectRunning(t, k, IdlePID)
}

func TestResumeUnknownTaskAborts(t *testing.T) {
	k := newStepKernel(t, Config{})
	mustCreate(t, k, 1)
	boot(k)

	enter(k, resumeReq{pid: 99})
	expectAbort(t, k, ErrNoSuchTask)
}

func TestTerminateRecyclesSlot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tasks = 1
	sw := &stepSwitcher{}
	k := NewWithOptions(Options{Config: cfg, Switcher: sw, Logger: quietLogger()})
	a := mustCreate(t, k, 1)
	boot(k)

	enter(k, terminateReq{})
	if sw.released != 1 {
		t.Fatalf("released frames = %d, want 1", sw.released)
	}
	if s := k.Stats(); s.Tasks != 0 {
		t.Fatalf("live tasks = %d, want 0", s.Tasks)
	}

	enter(k, createReq{entry: nop, prio: 1})
	if _, ok := k.Aborted(); ok {
		t.Fatalf("create after terminate aborted")
	}
	b := running(k)
	if b == a || b == IdlePID {
		t.Fatalf("new task pid = %d, want fresh pid", b)
	}
}

func TestIdleCannotTerminate(t *testing.T) {
	k := newStepKernel(t, Config{})
	boot(k)
	enter(k, terminateReq{})
	expectRunning(t, k, IdlePID)
	if _, ok := k.Aborted(); ok {
		t.Fatalf("idle terminate aborted the kernel")
	}
}

func TestNilRequestAborts(t *testing.T) {
	k := newStepKernel(t, Config{})
	mustCreate(t, k, 1)
	boot(k)
	enter(k, nil)
	expectAbort(t, k, FailInvariant)
}

func TestTraceRecordsSwitches(t *testing.T) {
	k := newStepKernel(t, Config{})
	a := mustCreate(t, k, 1)
	b := mustCreate(t, k, 1)
	boot(k)
	enter(k, yieldReq{})

	evs := k.Trace(nil)
	if len(evs) != 2 {
		t.Fatalf("trace len = %d, want 2", len(evs))
	}
	if evs[0].From != IdlePID || evs[0].To != a {
		t.Fatalf("first switch = %d->%d, want %d->%d", evs[0].From, evs[0].To, IdlePID, a)
	}
	if evs[1].From != a || evs[1].To != b {
		t.Fatalf("second switch = %d->%d, want %d->%d", evs[1].From, evs[1].To, a, b)
	}
	if more := k.Trace(nil); len(more) != 0 {
		t.Fatalf("trace not drained: %v", more)
	}
}
