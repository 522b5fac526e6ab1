//go:build !tinygo

package hal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestHostTimeAccumulatesPeriods(t *testing.T) {
	ht := newHostTime(10 * time.Millisecond)
	now := time.Unix(0, 0)

	ht.step(now)
	if got := len(ht.ch); got != 1 {
		t.Fatalf("expected first step to deliver 1 tick, got %d", got)
	}

	now = now.Add(25 * time.Millisecond)
	ht.step(now)
	if got := len(ht.ch); got != 3 {
		t.Fatalf("expected 3 ticks after 25ms, got %d", got)
	}

	// 5ms carried over plus 5ms more completes one period.
	now = now.Add(5 * time.Millisecond)
	ht.step(now)
	if got := len(ht.ch); got != 4 {
		t.Fatalf("expected 4 ticks, got %d", got)
	}

	var last uint64
	for len(ht.ch) > 0 {
		seq := <-ht.ch
		if seq != last+1 {
			t.Fatalf("expected seq %d, got %d", last+1, seq)
		}
		last = seq
	}
}

func TestHostLEDLogsEdgesOnly(t *testing.T) {
	var out bytes.Buffer
	h := newHost(&out, DefaultTickPeriod)

	h.LED().High()
	h.LED().High()
	h.LED().Low()
	h.LED().Low()

	if got := h.led.edges; got != 2 {
		t.Fatalf("expected 2 edges, got %d", got)
	}
	if got := out.String(); got != "led: HIGH\nled: LOW\n" {
		t.Fatalf("unexpected log %q", got)
	}
}

func TestHostFramebufferClear(t *testing.T) {
	h := newHost(&bytes.Buffer{}, DefaultTickPeriod)
	fb := h.Display().Framebuffer()
	fb.ClearRGB(0, 0, 255)

	buf := fb.Buffer()
	if len(buf) != fb.StrideBytes()*fb.Height() {
		t.Fatalf("expected %d bytes, got %d", fb.StrideBytes()*fb.Height(), len(buf))
	}
	if buf[0] != 0x1F || buf[1] != 0x00 || buf[len(buf)-2] != 0x1F {
		t.Fatalf("expected blue fill, got %#x %#x", buf[0], buf[1])
	}
}

func TestRunHeadlessStopsAfterTicks(t *testing.T) {
	h := newHost(&bytes.Buffer{}, DefaultTickPeriod)
	var steps int
	err := runHeadless(context.Background(), h, func(HAL) func() error {
		return func() error {
			steps++
			return nil
		}
	}, HeadlessConfig{Enabled: true, Hz: 1000, Ticks: 5})
	if err != nil {
		t.Fatalf("runHeadless: %v", err)
	}
	if steps != 5 {
		t.Fatalf("expected 5 steps, got %d", steps)
	}
	if got := len(h.t.ch); got != 5 {
		t.Fatalf("expected 5 ticks queued, got %d", got)
	}
}

func TestRunHeadlessStoppedIsClean(t *testing.T) {
	h := newHost(&bytes.Buffer{}, DefaultTickPeriod)
	err := runHeadless(context.Background(), h, func(HAL) func() error {
		return func() error { return ErrStopped }
	}, HeadlessConfig{Enabled: true, Hz: 1000})
	if err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
}

func TestRunHeadlessPropagatesError(t *testing.T) {
	h := newHost(&bytes.Buffer{}, DefaultTickPeriod)
	boom := errors.New("boom")
	err := runHeadless(context.Background(), h, func(HAL) func() error {
		return func() error { return boom }
	}, HeadlessConfig{Enabled: true, Hz: 1000})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestRunHeadlessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newHost(&bytes.Buffer{}, DefaultTickPeriod)
	err := runHeadless(ctx, h, func(HAL) func() error { return nil }, HeadlessConfig{Enabled: true})
	if err == nil || !strings.Contains(err.Error(), "canceled") {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
