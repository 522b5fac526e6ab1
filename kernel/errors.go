package kernel

import (
	"errors"
	"fmt"
)

// Code is a diagnostic code reported when the kernel halts.
type Code uint8

const (
	CodeNone Code = iota

	// Resource exhaustion.
	ErrTooManyTasks
	ErrTooManyMutexes
	ErrTooManyEvents

	// References to objects that do not exist.
	ErrNoSuchTask
	ErrNoSuchMutex
	ErrNoSuchEvent
	ErrBadPriority

	// Protocol violations.
	FailNotOwner
	FailDeadlock

	// Internal failures.
	FailInvariant
	FailTaskPanic

	// CodeUser is the first code available to tasks calling Context.Abort.
	CodeUser Code = 0x80
)

// Error classes, usable with errors.Is.
var (
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrNoSuchObject      = errors.New("no such object")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrInternal          = errors.New("internal error")
	ErrUserAbort         = errors.New("aborted by task")
)

func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case ErrTooManyTasks:
		return "too many tasks"
	case ErrTooManyMutexes:
		return "too many mutexes"
	case ErrTooManyEvents:
		return "too many events"
	case ErrNoSuchTask:
		return "no such task"
	case ErrNoSuchMutex:
		return "no such mutex"
	case ErrNoSuchEvent:
		return "no such event"
	case ErrBadPriority:
		return "bad priority"
	case FailNotOwner:
		return "unlock by non-owner"
	case FailDeadlock:
		return "deadlock"
	case FailInvariant:
		return "kernel invariant violated"
	case FailTaskPanic:
		return "task panic"
	default:
		if c >= CodeUser {
			return fmt.Sprintf("user code %d", uint8(c-CodeUser))
		}
		return "unknown"
	}
}

// Class returns the sentinel error for the code's class.
func (c Code) Class() error {
	switch c {
	case ErrTooManyTasks, ErrTooManyMutexes, ErrTooManyEvents:
		return ErrResourceExhausted
	case ErrNoSuchTask, ErrNoSuchMutex, ErrNoSuchEvent, ErrBadPriority:
		return ErrNoSuchObject
	case FailNotOwner, FailDeadlock:
		return ErrProtocolViolation
	default:
		if c >= CodeUser {
			return ErrUserAbort
		}
		return ErrInternal
	}
}

// Error is returned by the pre-start API and by Start after an abort.
type Error struct {
	Code   Code
	PID    PID
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("kernel: %s (code %d, pid %d)", e.Code, uint8(e.Code), e.PID)
	}
	return fmt.Sprintf("kernel: %s (code %d, pid %d): %s", e.Code, uint8(e.Code), e.PID, e.Detail)
}

func (e *Error) Unwrap() error { return e.Code.Class() }

// Halt reasons other than an abort.
var (
	ErrNoTasks   = errors.New("kernel: no tasks to start")
	ErrStarted   = errors.New("kernel: already started")
	ErrStalled   = errors.New("kernel: no task can ever run again")
	ErrTickLimit = errors.New("kernel: tick limit reached")
)
