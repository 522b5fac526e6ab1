package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Clock selects what drives OnTick.
type Clock uint8

const (
	// ClockExternal expects a timer to call OnTick; the idle task waits
	// for the next due wake-up.
	ClockExternal Clock = iota
	// ClockVirtual lets the idle task advance time itself, one tick per
	// idle pass, and halts once no task can ever run again.
	ClockVirtual
)

// Options configure a kernel instance.
type Options struct {
	Config   Config
	Switcher Switcher
	Logger   *logrus.Logger
	// OnAbort is called once, after the kernel has halted on an abort.
	OnAbort func(AbortInfo)
	Clock   Clock
	// TickLimit stops a virtual clock after this many ticks (0 = no limit).
	TickLimit uint64
}

// Kernel owns every task, queue and descriptor table. All mutation
// happens on the kernel loop with mu held, which stands in for masked
// interrupts.
type Kernel struct {
	mu sync.Mutex

	cfg     Config
	sw      Switcher
	log     *logrus.Entry
	onAbort func(AbortInfo)
	clock   Clock
	limit   uint64

	tasks    taskTable
	ready    [levels]queue
	sleeping queue
	mutexes  [MaxMutexes]mutex
	events   [MaxEvents]event
	nmutex   int
	nevent   int

	cur  ref
	idle ref

	ticks       uint64
	wakePending bool
	tickCh      chan struct{}
	done        <-chan struct{}
	started     chan struct{}

	active   bool
	halted   bool
	haltErr  error
	stopping bool
	stopErr  error
	aborted  *AbortInfo

	trace traceRing
}

// New creates a kernel with the default configuration and the goroutine
// context switch.
func New() *Kernel {
	return NewWithOptions(Options{})
}

// NewWithOptions creates and initializes a kernel. It panics if the
// configuration does not validate.
func NewWithOptions(opts Options) *Kernel {
	if opts.Config == (Config{}) {
		opts.Config = DefaultConfig()
	}
	if err := opts.Config.Validate(); err != nil {
		panic(err)
	}
	if opts.Switcher == nil {
		opts.Switcher = NewGoroutineSwitcher()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
		opts.Logger.SetLevel(opts.Config.Level())
	}
	k := &Kernel{
		cfg:     opts.Config,
		sw:      opts.Switcher,
		log:     opts.Logger.WithField("component", "kernel"),
		onAbort: opts.OnAbort,
		clock:   opts.Clock,
		limit:   opts.TickLimit,
		tickCh:  make(chan struct{}, 1),
	}
	k.Init()
	return k
}

// Init zeroes every table and creates the idle task. It must not be
// called while the kernel is running.
func (k *Kernel) Init() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.tasks.reset(k.cfg.Tasks)
	k.ready = [levels]queue{}
	k.sleeping = queue{}
	k.mutexes = [MaxMutexes]mutex{}
	k.events = [MaxEvents]event{}
	k.nmutex, k.nevent = 0, 0
	k.ticks = 0
	k.wakePending = false
	k.active, k.halted, k.stopping = false, false, false
	k.haltErr, k.stopErr, k.aborted = nil, nil, nil
	k.trace = traceRing{}
	k.started = make(chan struct{})

	k.idle = refOf(idleSlot)
	t := k.tasks.get(k.idle)
	*t = tcb{pid: IdlePID, state: Ready, base: IdlePriority, prio: IdlePriority, saved: noBoost}
	c := &Context{k: k, pid: IdlePID, slot: k.idle}
	t.frame = k.sw.NewFrame(func() { k.idleLoop(c) })
	c.frame = t.frame
	k.cur = k.idle
}

// Config returns the configuration the kernel was built with.
func (k *Kernel) Config() Config { return k.cfg }

// Create adds a task before Start. Once the kernel runs, tasks create
// tasks through Context.Create.
func (k *Kernel) Create(entry func(*Context), prio Priority, arg int) (PID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.active {
		return 0, ErrStarted
	}
	return k.create(entry, prio, arg)
}

// MutexInit claims a mutex before Start.
func (k *Kernel) MutexInit() (MutexID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.active {
		return 0, ErrStarted
	}
	return k.mutexInit()
}

// EventInit claims an event before Start.
func (k *Kernel) EventInit() (EventID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.active {
		return 0, ErrStarted
	}
	return k.eventInit()
}

// Start runs the scheduler. It returns only when the kernel halts: nil
// after Shutdown, a *Error after an abort, the context's error after
// cancellation, or ErrStalled/ErrTickLimit under a virtual clock.
func (k *Kernel) Start(ctx context.Context) error {
	k.mu.Lock()
	if k.active {
		k.mu.Unlock()
		return ErrStarted
	}
	if k.tasks.live == 0 {
		k.mu.Unlock()
		return ErrNoTasks
	}
	k.active = true
	k.done = ctx.Done()
	k.log.WithField("tasks", k.tasks.live).Info("kernel started")
	k.dispatch()
	close(k.started)
	k.mu.Unlock()

	for {
		k.sw.Resume(k.current().frame)
		if k.step(ctx) {
			break
		}
	}

	k.mu.Lock()
	k.release()
	err, info := k.haltErr, k.aborted
	k.log.WithField("tick", k.ticks).WithError(err).Info("kernel halted")
	k.mu.Unlock()

	if info != nil && k.onAbort != nil {
		k.onAbort(*info)
	}
	return err
}

// Started is closed once Start has dispatched the first task. Ticks and
// Shutdown issued before that act on a kernel that is not running yet.
func (k *Kernel) Started() <-chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.started
}

// step resolves the request left by the task that just trapped. It
// reports whether the kernel halted.
func (k *Kernel) step(ctx context.Context) (halted bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			k.abortWith(FailInvariant, fmt.Sprint(r), captureStack())
			halted = true
		}
	}()

	t := k.current()
	req := t.req
	t.req = nil

	woke := k.drainWakes()
	k.handle(req)
	if woke && !k.halted {
		k.preempt()
	}
	if !k.halted {
		if err := ctx.Err(); err != nil {
			k.halt(err)
		} else if k.stopping {
			k.halt(k.stopErr)
		}
	}
	return k.halted
}

// Shutdown asks the kernel to halt at its next entry.
func (k *Kernel) Shutdown() {
	k.mu.Lock()
	k.stop(nil)
	k.mu.Unlock()
	k.notifyIdle()
}

func (k *Kernel) stop(err error) {
	if k.stopping {
		return
	}
	k.stopping = true
	k.stopErr = err
}

func (k *Kernel) halt(err error) {
	if k.halted {
		return
	}
	k.halted = true
	k.haltErr = err
}

// release discards every remaining task context.
func (k *Kernel) release() {
	for i := range k.tasks.tcbs {
		t := &k.tasks.tcbs[i]
		if t.frame != nil {
			k.sw.Release(t.frame)
			t.frame = nil
		}
	}
}

func (k *Kernel) current() *tcb { return k.tasks.get(k.cur) }

func (k *Kernel) notifyIdle() {
	select {
	case k.tickCh <- struct{}{}:
	default:
	}
}

// idleLoop is the idle task: it waits for something to become due and
// re-enters the kernel with NEXT so pending wake-ups are processed.
func (k *Kernel) idleLoop(c *Context) {
	for {
		if k.clock == ClockVirtual {
			k.advance()
		} else {
			select {
			case <-k.tickCh:
			case <-k.done:
			}
		}
		c.trap(nextReq{})
	}
}

// advance moves a virtual clock forward by one tick, or stops the kernel
// when waiting can no longer help.
func (k *Kernel) advance() {
	k.mu.Lock()
	switch {
	case k.tasks.live == 0:
		k.stop(nil)
	case k.sleeping.empty():
		k.stop(ErrStalled)
	case k.limit > 0 && k.ticks >= k.limit:
		k.stop(ErrTickLimit)
	}
	stopping := k.stopping
	k.mu.Unlock()
	if !stopping {
		k.OnTick()
	}
}

func (k *Kernel) debugRequest(req request) {
	if !k.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	k.log.WithFields(logrus.Fields{
		"pid":  k.current().pid,
		"req":  req.kind().String(),
		"tick": k.ticks,
	}).Debug("request")
}
