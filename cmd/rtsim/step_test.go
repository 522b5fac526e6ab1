package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"ember/scenario"

	"github.com/sirupsen/logrus"
)

func TestStepLoopDrivesTicks(t *testing.T) {
	s, err := scenario.Load("sleep")
	if err != nil {
		t.Fatal(err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	r, err := scenario.NewRunner(s, scenario.Options{Logger: log, Realtime: true})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan scenario.Result, 1)
	go func() { done <- r.Run(ctx) }()

	keys := make(chan rune)
	go func() {
		defer close(keys)
		for _, k := range "9993q" {
			select {
			case keys <- k:
			case <-ctx.Done():
				return
			}
		}
	}()

	var out bytes.Buffer
	if err := stepLoop(&out, r, keys, done); err != nil {
		t.Fatalf("stepLoop() error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "finished at t=30") {
		t.Fatalf("expected finish at t=30, got:\n%s", out.String())
	}
}

func TestStepLoopQuitBeforeStart(t *testing.T) {
	s, err := scenario.Load("sleep")
	if err != nil {
		t.Fatal(err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	r, err := scenario.NewRunner(s, scenario.Options{Logger: log, Realtime: true})
	if err != nil {
		t.Fatal(err)
	}

	keys := make(chan rune, 1)
	keys <- 'q'
	close(keys)
	done := make(chan scenario.Result, 1)
	var out bytes.Buffer
	loopErr := make(chan error, 1)
	go func() { loopErr <- stepLoop(&out, r, keys, done) }()

	// The quit is already queued when the kernel comes up.
	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() { done <- r.Run(ctx) }()

	select {
	case <-loopErr:
	case <-ctx.Done():
		t.Fatal("timed out waiting for stepLoop")
	}
	// Every task reached its first sleep before the quit took effect.
	for _, name := range []string{"Ping", "Pong", "Pang"} {
		if !strings.Contains(out.String(), "t=0     "+name) {
			t.Fatalf("expected %s to run before quitting, got:\n%s", name, out.String())
		}
	}
	if !strings.Contains(out.String(), "finished at t=0") {
		t.Fatalf("expected a clean finish at t=0, got:\n%s", out.String())
	}
}

func TestRunCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "lab3", "--log-level", "error"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "lab3: P1,P2,P3,P2,P1,P3,P2,P1") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}
