package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ember/hal"
	"ember/kernel"
	"ember/scenario"

	"github.com/sirupsen/logrus"
)

// DefaultScenario runs when Config.Scenario is empty.
const DefaultScenario = "lab3"

type Config struct {
	// Scenario is a built-in scenario name or a YAML file path.
	Scenario string
	// Kernel is the kernel configuration; zero means the embedded defaults.
	Kernel kernel.Config
	// HoldOnAbort keeps the abort screen up until Escape is pressed.
	HoldOnAbort bool
}

type system struct {
	h    hal.HAL
	cfg  Config
	log  *logrus.Logger
	r    *scenario.Runner
	k    *kernel.Kernel
	kbd  hal.Keyboard
	led  hal.LED
	mon  monitor
	snap []kernel.TaskInfo
	sw   []kernel.TraceEvent

	done chan struct{}
	res  scenario.Result

	mu      sync.Mutex
	aborted *kernel.AbortInfo

	busy     bool
	finished bool
	released bool
}

// New initializes and starts the kernel with the default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

// Run starts the kernel and blocks forever (TinyGo/native entrypoint).
func Run(h hal.HAL) {
	RunWithConfig(h, Config{})
}

// NewWithConfig starts the configured scenario on a kernel driven by the
// HAL tick stream and returns the per-frame step function. The step returns
// hal.ErrStopped after a clean halt and the kernel error after an abort.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := newSystem(h, cfg)
	if err != nil {
		if l := h.Logger(); l != nil {
			l.WriteLineString("ember: " + err.Error())
		}
		return func() error { return err }
	}
	return s.step
}

// RunWithConfig steps the system once per tick period and then blocks
// forever, leaving the last screen up.
func RunWithConfig(h hal.HAL, cfg Config) {
	step := NewWithConfig(h, cfg)
	period := cfg.Kernel.TickPeriod
	if period <= 0 {
		period = kernel.DefaultConfig().TickPeriod
	}
	for step() == nil {
		time.Sleep(period)
	}
	select {}
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	if cfg.Scenario == "" {
		cfg.Scenario = DefaultScenario
	}
	if cfg.Kernel == (kernel.Config{}) {
		cfg.Kernel = kernel.DefaultConfig()
	}
	if err := cfg.Kernel.Validate(); err != nil {
		return nil, err
	}

	script, err := scenario.Open(cfg.Scenario)
	if err != nil {
		return nil, err
	}

	s := &system{
		h:    h,
		cfg:  cfg,
		log:  newLogger(h.Logger(), cfg.Kernel.Level()),
		led:  h.LED(),
		done: make(chan struct{}),
	}
	s.r, err = scenario.NewRunner(script, scenario.Options{
		Config:   cfg.Kernel,
		Logger:   s.log,
		Realtime: true,
		OnAbort:  s.onAbort,
	})
	if err != nil {
		return nil, err
	}
	s.k = s.r.Kernel()

	if in := h.Input(); in != nil {
		s.kbd = in.Keyboard()
	}
	if d := h.Display(); d != nil {
		s.mon.d = fbDisplay{fb: d.Framebuffer()}
	}
	s.mon.title = "ember " + script.Name

	s.log.WithField("scenario", script.Name).Info("booting")
	go func() {
		s.res = s.r.Run(context.Background())
		close(s.done)
	}()

	if ht := h.Time(); ht != nil {
		if ch := ht.Ticks(); ch != nil {
			go s.forwardTicks(ch)
		}
	}
	return s, nil
}

// forwardTicks turns the HAL tick stream into kernel ticks, replaying any
// sequence numbers the stream dropped. Ticks queued before the kernel is
// running are held until Start has dispatched.
func (s *system) forwardTicks(ch <-chan uint64) {
	select {
	case <-s.k.Started():
	case <-s.done:
		return
	}

	var last uint64
	for {
		select {
		case <-s.done:
			return
		case seq, ok := <-ch:
			if !ok {
				return
			}
			n := uint64(1)
			if last != 0 && seq > last {
				n = seq - last
			}
			last = seq
			for ; n > 0; n-- {
				s.k.OnTick()
			}
		}
	}
}

func (s *system) onAbort(info kernel.AbortInfo) {
	s.mu.Lock()
	s.aborted = &info
	s.mu.Unlock()
	logAbort(s.h.Logger(), info)
}

func (s *system) step() error {
	s.pollKeys()

	select {
	case <-s.done:
		return s.finish()
	default:
	}

	st := s.k.Stats()
	s.setBusy(s.ranTask())
	if st.Tasks == 0 && !st.WakePending && !st.Halted {
		s.k.Shutdown()
	}
	s.snap = s.k.Snapshot(s.snap[:0])
	s.mon.draw(st, s.snap, s.r.Trace())
	return nil
}

func (s *system) pollKeys() {
	if s.kbd == nil {
		return
	}
	for {
		select {
		case ev, ok := <-s.kbd.Events():
			if !ok {
				s.kbd = nil
				return
			}
			if !ev.Press {
				continue
			}
			if ev.Code == hal.KeyEscape || ev.Rune == 'q' {
				s.k.Shutdown()
				s.released = true
			}
		default:
			return
		}
	}
}

// ranTask drains the dispatch trace and reports whether any task other
// than idle was switched in since the last frame.
func (s *system) ranTask() bool {
	s.sw = s.k.Trace(s.sw[:0])
	for _, ev := range s.sw {
		if ev.To != kernel.IdlePID {
			return true
		}
	}
	return false
}

func (s *system) setBusy(busy bool) {
	if s.led == nil || busy == s.busy {
		return
	}
	s.busy = busy
	if busy {
		s.led.High()
	} else {
		s.led.Low()
	}
}

// finish reports the halted run once, then keeps returning its outcome.
func (s *system) finish() error {
	if !s.finished {
		s.finished = true
		s.setBusy(false)
		s.report()
	}

	s.mu.Lock()
	aborted := s.aborted
	s.mu.Unlock()

	if aborted != nil {
		if s.cfg.HoldOnAbort && !s.released {
			return nil
		}
		return s.res.Err
	}
	if s.res.Err != nil && !errors.Is(s.res.Err, context.Canceled) {
		return s.res.Err
	}
	return hal.ErrStopped
}

func (s *system) report() {
	entry := s.log.WithFields(logrus.Fields{
		"scenario": s.r.Script().Name,
		"ticks":    s.res.Ticks,
		"trace":    strings.Join(s.res.Trace, ","),
	})
	if s.res.Err != nil {
		entry = entry.WithError(s.res.Err)
	}
	entry.Info("scenario halted")
	if err := s.r.Script().Check(s.res); err != nil {
		s.log.WithError(err).Warn("scenario expectation not met")
	}

	s.mu.Lock()
	aborted := s.aborted
	s.mu.Unlock()
	if aborted != nil {
		drawAbort(s.mon.d, *aborted)
		return
	}
	st := s.k.Stats()
	s.snap = s.k.Snapshot(s.snap[:0])
	s.mon.drawn = false
	s.mon.draw(st, s.snap, s.res.Trace)
}
