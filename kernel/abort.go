package kernel

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// AbortInfo describes a fatal halt.
type AbortInfo struct {
	Code   Code
	PID    PID
	Detail string
	Stack  []byte
}

// Err returns the halt as the *Error Start reports.
func (a AbortInfo) Err() error {
	return &Error{Code: a.Code, PID: a.PID, Detail: a.Detail}
}

// Aborted reports the abort that halted the kernel, if any.
func (k *Kernel) Aborted() (AbortInfo, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.aborted == nil {
		return AbortInfo{}, false
	}
	return *k.aborted, true
}

func (k *Kernel) abort(code Code, detail string) {
	k.abortWith(code, detail, nil)
}

func (k *Kernel) abortErr(err error) {
	var e *Error
	if errors.As(err, &e) {
		k.abortWith(e.Code, e.Detail, nil)
		return
	}
	k.abortWith(FailInvariant, err.Error(), nil)
}

// abortWith halts the kernel. Only the first abort is recorded; no task
// runs again.
func (k *Kernel) abortWith(code Code, detail string, stack []byte) {
	if k.halted {
		return
	}
	info := AbortInfo{Code: code, PID: k.current().pid, Detail: detail, Stack: stack}
	k.aborted = &info
	k.halt(info.Err())
	k.log.WithFields(logrus.Fields{
		"code":   uint8(code),
		"pid":    info.PID,
		"detail": detail,
		"tick":   k.ticks,
	}).Error("kernel abort: " + code.String())
}
