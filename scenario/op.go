package scenario

import (
	"fmt"
	"strconv"
	"strings"
)

// OpKind is a scripted kernel call.
type OpKind uint8

const (
	OpSleep OpKind = iota + 1
	OpYield
	OpLock
	OpUnlock
	OpWait
	OpSignal
	OpSuspend
	OpResume
	OpCreate
	OpTerminate
	OpAbort
)

var verbs = map[string]OpKind{
	"sleep":     OpSleep,
	"yield":     OpYield,
	"lock":      OpLock,
	"unlock":    OpUnlock,
	"wait":      OpWait,
	"signal":    OpSignal,
	"suspend":   OpSuspend,
	"resume":    OpResume,
	"create":    OpCreate,
	"terminate": OpTerminate,
	"abort":     OpAbort,
}

func (k OpKind) String() string {
	for name, v := range verbs {
		if v == k {
			return name
		}
	}
	return "op(" + strconv.Itoa(int(k)) + ")"
}

// operand describes what follows the verb.
type operand uint8

const (
	noOperand operand = iota
	numberOperand
	mutexOperand
	eventOperand
	taskOperand
)

func (k OpKind) operand() operand {
	switch k {
	case OpSleep, OpAbort:
		return numberOperand
	case OpLock, OpUnlock:
		return mutexOperand
	case OpWait, OpSignal:
		return eventOperand
	case OpSuspend, OpResume, OpCreate:
		return taskOperand
	default:
		return noOperand
	}
}

// Op is one parsed script line, e.g. "sleep 30" or "lock m1".
type Op struct {
	Kind   OpKind
	Target string
	N      int
}

func (o Op) String() string {
	switch o.Kind.operand() {
	case numberOperand:
		return fmt.Sprintf("%s %d", o.Kind, o.N)
	case noOperand:
		return o.Kind.String()
	default:
		return o.Kind.String() + " " + o.Target
	}
}

// ParseOp parses a single operation.
func ParseOp(s string) (Op, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Op{}, fmt.Errorf("%w: empty op", ErrInvalidScript)
	}
	kind, ok := verbs[strings.ToLower(fields[0])]
	if !ok {
		return Op{}, fmt.Errorf("%w: unknown op %q", ErrInvalidScript, fields[0])
	}
	op := Op{Kind: kind}
	want := 2
	if kind.operand() == noOperand {
		want = 1
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("%w: %q takes %d operand(s)", ErrInvalidScript, fields[0], want-1)
	}
	switch kind.operand() {
	case noOperand:
	case numberOperand:
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 0 {
			return Op{}, fmt.Errorf("%w: %q needs a non-negative number, got %q", ErrInvalidScript, fields[0], fields[1])
		}
		op.N = n
	default:
		op.Target = fields[1]
	}
	return op, nil
}
