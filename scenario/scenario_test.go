package scenario

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ember/kernel"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func run(t *testing.T, s *Script) Result {
	t.Helper()
	r, err := NewRunner(s, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewRunner(%s) error = %v", s.Name, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.Run(ctx)
}

func TestBuiltinScenarios(t *testing.T) {
	names := Names()
	for _, want := range []string{"lab1", "lab2", "lab3", "inherit", "yield", "sleep", "deadlock"} {
		if !slices.Contains(names, want) {
			t.Fatalf("Names() = %v, missing %s", names, want)
		}
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s, err := Load(name)
			if err != nil {
				t.Fatalf("Load(%s) error = %v", name, err)
			}
			res := run(t, s)
			if err := s.Check(res); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestLab3Timing(t *testing.T) {
	s, err := Load("lab3")
	if err != nil {
		t.Fatal(err)
	}
	res := run(t, s)
	if res.Ticks != 40 {
		t.Fatalf("expected 40 ticks, got %d", res.Ticks)
	}
}

func TestCheckReportsMismatch(t *testing.T) {
	s, err := Load("lab3")
	if err != nil {
		t.Fatal(err)
	}
	res := Result{Trace: []string{"P1", "P2"}}
	if err := s.Check(res); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	res = Result{Trace: s.Expect.Trace, Err: kernel.ErrStalled}
	if err := s.Check(res); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch for unexpected halt, got %v", err)
	}
}

func TestUnknownScenario(t *testing.T) {
	if _, err := Load("nope"); err == nil || !strings.Contains(err.Error(), "lab3") {
		t.Fatalf("expected error listing scenarios, got %v", err)
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"no name":         "tasks: [{name: A, ops: [yield]}]",
		"no boot task":    "name: x\ntasks: [{name: A, deferred: true}]",
		"unknown op":      "name: x\ntasks: [{name: A, ops: [jump]}]",
		"missing operand": "name: x\ntasks: [{name: A, ops: [sleep]}]",
		"bad number":      "name: x\ntasks: [{name: A, ops: [sleep -3]}]",
		"undeclared lock": "name: x\ntasks: [{name: A, ops: [lock m]}]",
		"undeclared wait": "name: x\nmutexes: [e]\ntasks: [{name: A, ops: [wait e]}]",
		"unknown task":    "name: x\ntasks: [{name: A, ops: [resume B]}]",
		"create boot":     "name: x\ntasks: [{name: A, ops: [create B]}, {name: B}]",
		"duplicate task":  "name: x\ntasks: [{name: A}, {name: A}]",
		"bad priority":    "name: x\ntasks: [{name: A, priority: 11}]",
		"bad halt":        "name: x\ntasks: [{name: A}]\nexpect: {halt: explode}",
		"abort range":     "name: x\ntasks: [{name: A, ops: [abort 200]}]",
		"not yaml":        "name: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(body)); !errors.Is(err, ErrInvalidScript) {
				t.Fatalf("expected ErrInvalidScript, got %v", err)
			}
		})
	}
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp("Sleep 30")
	if err != nil {
		t.Fatalf("ParseOp() error = %v", err)
	}
	if op.Kind != OpSleep || op.N != 30 {
		t.Fatalf("expected sleep 30, got %s", op)
	}
	if op, _ := ParseOp("lock m1"); op.String() != "lock m1" {
		t.Fatalf("expected lock m1, got %s", op)
	}
	if op, _ := ParseOp("yield"); op.String() != "yield" {
		t.Fatalf("expected yield, got %s", op)
	}
	if _, err := ParseOp("yield now"); err == nil {
		t.Fatal("expected error for extra operand")
	}
}

func TestScriptedAbortAndSuspend(t *testing.T) {
	s, err := Parse([]byte(`
name: abort
tasks:
  - name: A
    priority: 2
    ops: [suspend self]
  - name: B
    priority: 3
    ops: [resume A, abort 4]
expect:
  trace: [A, B]
  halt: user
`))
	if err != nil {
		t.Fatal(err)
	}
	res := run(t, s)
	if err := s.Check(res); err != nil {
		t.Fatal(err)
	}
	var kerr *kernel.Error
	if !errors.As(res.Err, &kerr) || kerr.Code != kernel.CodeUser+4 {
		t.Fatalf("expected user code 4, got %v", res.Err)
	}
}

func TestResumeBeforeCreateAborts(t *testing.T) {
	s, err := Parse([]byte(`
name: early
tasks:
  - name: A
    ops: [resume B]
  - name: B
    deferred: true
expect:
  halt: no-such-task
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Check(run(t, s)); err != nil {
		t.Fatal(err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mine.yaml")
	body := "name: mine\ntasks: [{name: A, ops: [sleep 2]}]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	res := run(t, s)
	if res.Err != nil || res.Ticks != 2 {
		t.Fatalf("expected clean run of 2 ticks, got %d ticks, err %v", res.Ticks, res.Err)
	}
}
