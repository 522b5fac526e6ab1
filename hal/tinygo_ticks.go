//go:build tinygo

package hal

import "time"

// DefaultTickPeriod matches the kernel's default tick period.
const DefaultTickPeriod = 10 * time.Millisecond

// tickerTime numbers the fires of a free-running timer. A fire that finds
// the channel full is dropped but still consumes a sequence number, so the
// consumer sees the gap and can replay it.
type tickerTime struct {
	ch  chan uint64
	seq uint64
}

func startTicker(period time.Duration) *tickerTime {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	t := &tickerTime{ch: make(chan uint64, 16)}
	go t.run(period)
	return t
}

func (t *tickerTime) run(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for range ticker.C {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}

func (t *tickerTime) Ticks() <-chan uint64 { return t.ch }
