package scenario

import (
	"context"
	"fmt"
	"sync"

	"ember/kernel"

	"github.com/sirupsen/logrus"
)

// Options configure a Runner.
type Options struct {
	Config kernel.Config
	Logger *logrus.Logger
	// Realtime leaves OnTick to the caller. By default the idle task
	// advances a virtual clock, so a run takes as long as the scheduling
	// does, not as long as the sleeps.
	Realtime bool
	OnAbort  func(kernel.AbortInfo)
}

// Result is the outcome of a run.
type Result struct {
	// Trace holds a task name for every scripted call, with consecutive
	// repeats collapsed.
	Trace []string
	Ticks uint64
	Err   error
}

// Runner owns a kernel loaded with one script.
type Runner struct {
	script  *Script
	k       *kernel.Kernel
	log     *logrus.Entry
	mutexes map[string]kernel.MutexID
	events  map[string]kernel.EventID
	// pids is written by tasks, which the kernel runs one at a time.
	pids map[string]kernel.PID

	mu    sync.Mutex
	trace []string
}

// NewRunner builds a kernel and creates the script's objects and boot
// tasks on it.
func NewRunner(s *Script, opts Options) (*Runner, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	r := &Runner{
		script:  s,
		log:     opts.Logger.WithField("scenario", s.Name),
		mutexes: make(map[string]kernel.MutexID, len(s.Mutexes)),
		events:  make(map[string]kernel.EventID, len(s.Events)),
		pids:    make(map[string]kernel.PID, len(s.Tasks)),
	}
	clock := kernel.ClockVirtual
	if opts.Realtime {
		clock = kernel.ClockExternal
	}
	r.k = kernel.NewWithOptions(kernel.Options{
		Config:    opts.Config,
		Logger:    opts.Logger,
		OnAbort:   opts.OnAbort,
		Clock:     clock,
		TickLimit: s.TickLimit,
	})

	for _, name := range s.Mutexes {
		id, err := r.k.MutexInit()
		if err != nil {
			return nil, fmt.Errorf("mutex %s: %w", name, err)
		}
		r.mutexes[name] = id
	}
	for _, name := range s.Events {
		id, err := r.k.EventInit()
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", name, err)
		}
		r.events[name] = id
	}
	for i := range s.Tasks {
		ts := &s.Tasks[i]
		if ts.Deferred {
			continue
		}
		pid, err := r.k.Create(r.entry(ts), kernel.Priority(ts.Priority), ts.Arg)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", ts.Name, err)
		}
		r.pids[ts.Name] = pid
	}
	return r, nil
}

// Kernel exposes the kernel for ticking and inspection.
func (r *Runner) Kernel() *kernel.Kernel { return r.k }

// Script returns the script being run.
func (r *Runner) Script() *Script { return r.script }

// Run starts the kernel and blocks until it halts.
func (r *Runner) Run(ctx context.Context) Result {
	err := r.k.Start(ctx)
	r.log.WithField("ticks", r.k.Now()).WithError(err).Debug("scenario finished")
	return Result{Trace: r.Trace(), Ticks: r.k.Now(), Err: err}
}

// Trace returns a copy of the trace recorded so far.
func (r *Runner) Trace() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.trace...)
}

func (r *Runner) mark(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.trace); n > 0 && r.trace[n-1] == name {
		return
	}
	r.trace = append(r.trace, name)
}

func (r *Runner) entry(ts *TaskSpec) func(*kernel.Context) {
	return func(c *kernel.Context) {
		for i := 0; ts.Repeat < 0 || i < max(ts.Repeat, 1); i++ {
			for _, op := range ts.ops {
				r.mark(ts.Name)
				r.exec(c, op)
			}
		}
	}
}

func (r *Runner) exec(c *kernel.Context, op Op) {
	switch op.Kind {
	case OpSleep:
		c.Sleep(kernel.Tick(op.N))
	case OpYield:
		c.Yield()
	case OpLock:
		c.Lock(r.mutexes[op.Target])
	case OpUnlock:
		c.Unlock(r.mutexes[op.Target])
	case OpWait:
		c.Wait(r.events[op.Target])
	case OpSignal:
		c.Signal(r.events[op.Target])
	case OpSuspend:
		c.Suspend(r.pid(c, op.Target))
	case OpResume:
		c.Resume(r.pid(c, op.Target))
	case OpCreate:
		ts := r.script.Task(op.Target)
		r.pids[ts.Name] = c.Create(r.entry(ts), kernel.Priority(ts.Priority), ts.Arg)
	case OpTerminate:
		c.Terminate()
	case OpAbort:
		c.Abort(kernel.CodeUser+kernel.Code(op.N), "scripted abort")
	}
}

// pid resolves a task operand. A task that has not been created yet
// resolves to the idle PID, which the kernel rejects.
func (r *Runner) pid(c *kernel.Context, name string) kernel.PID {
	if name == "self" {
		return c.TaskID()
	}
	return r.pids[name]
}
