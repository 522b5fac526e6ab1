package kernel

import "runtime"

// Frame is an execution context owned by a Switcher. The kernel never
// looks inside it.
type Frame any

// Switcher is the architecture-specific context switch.
//
// Exactly one side runs at a time: Resume hands the processor to a task
// and returns when that task calls Enter.
type Switcher interface {
	// NewFrame prepares a suspended context that runs entry when first resumed.
	NewFrame(entry func()) Frame
	// Resume runs the selected frame until it re-enters the kernel.
	Resume(f Frame)
	// Enter saves the calling task and suspends it in the kernel. It
	// returns when the kernel resumes the frame again.
	Enter(f Frame)
	// Release discards a frame that will never be resumed.
	Release(f Frame)
}

// goFrame runs a task on its own goroutine.
type goFrame struct {
	run     chan struct{}
	entry   func()
	started bool
}

// GoroutineSwitcher hands the processor between the kernel loop and task
// goroutines over channels. A released task exits its goroutine the next
// time it would be resumed.
type GoroutineSwitcher struct {
	trap chan struct{}
}

// NewGoroutineSwitcher returns the reference Switcher.
func NewGoroutineSwitcher() *GoroutineSwitcher {
	return &GoroutineSwitcher{trap: make(chan struct{})}
}

func (s *GoroutineSwitcher) NewFrame(entry func()) Frame {
	return &goFrame{run: make(chan struct{}), entry: entry}
}

func (s *GoroutineSwitcher) Resume(f Frame) {
	gf := f.(*goFrame)
	if !gf.started {
		gf.started = true
		go s.start(gf)
	}
	gf.run <- struct{}{}
	<-s.trap
}

func (s *GoroutineSwitcher) start(f *goFrame) {
	if _, ok := <-f.run; !ok {
		return
	}
	f.entry()
	// entry always ends in a trap; reaching here means the frame was
	// released while the task was unwinding.
}

func (s *GoroutineSwitcher) Enter(f Frame) {
	gf := f.(*goFrame)
	s.trap <- struct{}{}
	if _, ok := <-gf.run; !ok {
		runtime.Goexit()
	}
}

func (s *GoroutineSwitcher) Release(f Frame) {
	close(f.(*goFrame).run)
}
