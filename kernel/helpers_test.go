package kernel

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// stepSwitcher never runs task code: tests drive the request handler
// directly, acting as whichever task is current.
type stepSwitcher struct {
	released int
}

type stepFrame struct{}

func (s *stepSwitcher) NewFrame(func()) Frame { return &stepFrame{} }
func (s *stepSwitcher) Resume(Frame)          {}
func (s *stepSwitcher) Enter(Frame)           {}
func (s *stepSwitcher) Release(Frame)         { s.released++ }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newStepKernel(t *testing.T, cfg Config) *Kernel {
	t.Helper()
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return NewWithOptions(Options{Config: cfg, Switcher: &stepSwitcher{}, Logger: quietLogger()})
}

func nop(*Context) {}

func mustCreate(t *testing.T, k *Kernel, prio Priority) PID {
	t.Helper()
	pid, err := k.Create(nop, prio, 0)
	if err != nil {
		t.Fatalf("Create(%d) error = %v", prio, err)
	}
	return pid
}

func mustMutex(t *testing.T, k *Kernel) MutexID {
	t.Helper()
	m, err := k.MutexInit()
	if err != nil {
		t.Fatalf("MutexInit() error = %v", err)
	}
	return m
}

func mustEvent(t *testing.T, k *Kernel) EventID {
	t.Helper()
	e, err := k.EventInit()
	if err != nil {
		t.Fatalf("EventInit() error = %v", err)
	}
	return e
}

// boot marks the kernel started and dispatches the first task.
func boot(k *Kernel) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.active = true
	k.dispatch()
}

// enter resolves req on behalf of the current task, as the kernel loop
// does after a trap.
func enter(k *Kernel, req request) {
	k.mu.Lock()
	defer k.mu.Unlock()
	woke := k.drainWakes()
	k.handle(req)
	if woke && !k.halted {
		k.preempt()
	}
}

func running(k *Kernel) PID {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current().pid
}

func taskOf(t *testing.T, k *Kernel, pid PID) *tcb {
	t.Helper()
	r := k.tasks.lookup(pid)
	if r == none {
		t.Fatalf("no live task with pid %d", pid)
	}
	return k.tasks.get(r)
}

func expectRunning(t *testing.T, k *Kernel, want PID) {
	t.Helper()
	if got := running(k); got != want {
		t.Fatalf("running = %d, want %d", got, want)
	}
}

func expectAbort(t *testing.T, k *Kernel, want Code) AbortInfo {
	t.Helper()
	info, ok := k.Aborted()
	if !ok {
		t.Fatalf("expected abort with %s, kernel still running", want)
	}
	if info.Code != want {
		t.Fatalf("expected abort code %s, got %s (%s)", want, info.Code, info.Detail)
	}
	return info
}

func readyPIDs(k *Kernel, p Priority) []PID {
	var pids []PID
	for r := k.ready[p].head; r != none; r = k.tasks.get(r).next {
		pids = append(pids, k.tasks.get(r).pid)
	}
	return pids
}
