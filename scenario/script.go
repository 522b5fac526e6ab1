package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"ember/kernel"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidScript = errors.New("invalid scenario")
	ErrMismatch      = errors.New("scenario mismatch")
)

const defaultTickLimit = 10_000

// Script is a scenario: the objects and tasks created before Start, and
// what the run is expected to produce.
type Script struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	TickLimit   uint64     `yaml:"tickLimit"`
	Mutexes     []string   `yaml:"mutexes"`
	Events      []string   `yaml:"events"`
	Tasks       []TaskSpec `yaml:"tasks"`
	Expect      Expect     `yaml:"expect"`
}

// TaskSpec describes one scripted task. A deferred task is not created
// at boot; another task starts it with "create <name>".
type TaskSpec struct {
	Name     string   `yaml:"name"`
	Priority uint8    `yaml:"priority"`
	Arg      int      `yaml:"arg"`
	Deferred bool     `yaml:"deferred"`
	Repeat   int      `yaml:"repeat"`
	Ops      []string `yaml:"ops"`

	ops []Op
}

// Expect is the outcome a script asserts. Halt is empty for a clean
// finish, "stalled", "tick-limit", or an abort code name.
type Expect struct {
	Trace []string `yaml:"trace"`
	Halt  string   `yaml:"halt"`
}

var haltCodes = map[string]kernel.Code{
	"too-many-tasks":   kernel.ErrTooManyTasks,
	"too-many-mutexes": kernel.ErrTooManyMutexes,
	"too-many-events":  kernel.ErrTooManyEvents,
	"no-such-task":     kernel.ErrNoSuchTask,
	"no-such-mutex":    kernel.ErrNoSuchMutex,
	"no-such-event":    kernel.ErrNoSuchEvent,
	"bad-priority":     kernel.ErrBadPriority,
	"not-owner":        kernel.FailNotOwner,
	"deadlock":         kernel.FailDeadlock,
	"invariant":        kernel.FailInvariant,
	"task-panic":       kernel.FailTaskPanic,
}

func haltNames() []string {
	names := append(maps.Keys(haltCodes), "stalled", "tick-limit", "user")
	slices.Sort(names)
	return names
}

// Parse decodes and validates a YAML script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads a script from disk.
func LoadFile(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Script) compile() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidScript)
	}
	if len(s.Mutexes) > kernel.MaxMutexes || len(s.Events) > kernel.MaxEvents || len(s.Tasks) > kernel.MaxTasks {
		return fmt.Errorf("%w: %s declares more objects than the kernel tables hold", ErrInvalidScript, s.Name)
	}
	if s.TickLimit == 0 {
		s.TickLimit = defaultTickLimit
	}
	if err := unique("mutex", s.Mutexes); err != nil {
		return err
	}
	if err := unique("event", s.Events); err != nil {
		return err
	}
	names := make([]string, 0, len(s.Tasks))
	boot := 0
	for i := range s.Tasks {
		names = append(names, s.Tasks[i].Name)
		if !s.Tasks[i].Deferred {
			boot++
		}
	}
	if err := unique("task", names); err != nil {
		return err
	}
	if boot == 0 {
		return fmt.Errorf("%w: %s has no boot task", ErrInvalidScript, s.Name)
	}

	for i := range s.Tasks {
		ts := &s.Tasks[i]
		if ts.Name == "" || ts.Name == "self" {
			return fmt.Errorf("%w: task %d has an invalid name %q", ErrInvalidScript, i, ts.Name)
		}
		if kernel.Priority(ts.Priority) > kernel.MinPriority {
			return fmt.Errorf("%w: task %s priority %d exceeds %d", ErrInvalidScript, ts.Name, ts.Priority, kernel.MinPriority)
		}
		ts.ops = ts.ops[:0]
		for _, line := range ts.Ops {
			op, err := ParseOp(line)
			if err != nil {
				return fmt.Errorf("task %s: %w", ts.Name, err)
			}
			if err := s.resolve(op); err != nil {
				return fmt.Errorf("task %s: %w", ts.Name, err)
			}
			ts.ops = append(ts.ops, op)
		}
	}

	if s.Expect.Halt != "" && !slices.Contains(haltNames(), s.Expect.Halt) {
		return fmt.Errorf("%w: unknown halt %q (want one of %s)", ErrInvalidScript, s.Expect.Halt, strings.Join(haltNames(), ", "))
	}
	return nil
}

func (s *Script) resolve(op Op) error {
	switch op.Kind.operand() {
	case numberOperand:
		if op.Kind == OpAbort && op.N > int(math.MaxUint8-kernel.CodeUser) {
			return fmt.Errorf("%w: abort code %d out of range", ErrInvalidScript, op.N)
		}
		if uint64(op.N) > math.MaxUint32 {
			return fmt.Errorf("%w: %s out of range", ErrInvalidScript, op)
		}
	case mutexOperand:
		if !slices.Contains(s.Mutexes, op.Target) {
			return fmt.Errorf("%w: %s: undeclared mutex", ErrInvalidScript, op)
		}
	case eventOperand:
		if !slices.Contains(s.Events, op.Target) {
			return fmt.Errorf("%w: %s: undeclared event", ErrInvalidScript, op)
		}
	case taskOperand:
		if op.Target == "self" && op.Kind != OpCreate {
			return nil
		}
		ts := s.Task(op.Target)
		if ts == nil {
			return fmt.Errorf("%w: %s: undeclared task", ErrInvalidScript, op)
		}
		if op.Kind == OpCreate && !ts.Deferred {
			return fmt.Errorf("%w: %s: task is created at boot", ErrInvalidScript, op)
		}
	}
	return nil
}

// Task returns the named task, or nil.
func (s *Script) Task(name string) *TaskSpec {
	i := slices.IndexFunc(s.Tasks, func(ts TaskSpec) bool { return ts.Name == name })
	if i < 0 {
		return nil
	}
	return &s.Tasks[i]
}

func unique(what string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("%w: empty %s name", ErrInvalidScript, what)
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate %s %q", ErrInvalidScript, what, n)
		}
		seen[n] = true
	}
	return nil
}

// Check compares a run against the script's expectations.
func (s *Script) Check(res Result) error {
	if len(s.Expect.Trace) > 0 && !slices.Equal(res.Trace, s.Expect.Trace) {
		return fmt.Errorf("%w: %s: trace %s, want %s", ErrMismatch, s.Name,
			strings.Join(res.Trace, ","), strings.Join(s.Expect.Trace, ","))
	}
	if !s.halted(res.Err) {
		want := s.Expect.Halt
		if want == "" {
			want = "clean finish"
		}
		return fmt.Errorf("%w: %s: halted with %v, want %s", ErrMismatch, s.Name, res.Err, want)
	}
	return nil
}

func (s *Script) halted(err error) bool {
	switch s.Expect.Halt {
	case "":
		return err == nil
	case "stalled":
		return errors.Is(err, kernel.ErrStalled)
	case "tick-limit":
		return errors.Is(err, kernel.ErrTickLimit)
	case "user":
		return errors.Is(err, kernel.ErrUserAbort)
	}
	var kerr *kernel.Error
	return errors.As(err, &kerr) && kerr.Code == haltCodes[s.Expect.Halt]
}
