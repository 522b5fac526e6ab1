//go:build tinygo && !baremetal

package hal

import "runtime"

// printHAL serves `tinygo run` on linux or wasm, where there are no pins or
// screen. Everything the kernel reports goes through println.
type printHAL struct {
	led *printLED
	t   *tickerTime
}

// New returns a TinyGo-on-host HAL.
func New() HAL {
	return &printHAL{
		led: &printLED{},
		t:   startTicker(DefaultTickPeriod),
	}
}

func (h *printHAL) Logger() Logger   { return printLogger{} }
func (h *printHAL) LED() LED         { return h.led }
func (h *printHAL) Display() Display { return nil }
func (h *printHAL) Input() Input     { return nil }
func (h *printHAL) Time() Time       { return h.t }

type printLogger struct{}

func (printLogger) WriteLineString(s string) { println(s) }
func (printLogger) WriteLineBytes(b []byte)  { println(string(b)) }

// printLED reports busy/idle edges, not every frame.
type printLED struct{ on bool }

func (l *printLED) High() {
	if !l.on {
		l.on = true
		println("led: busy (tinygo/" + runtime.GOOS + ")")
	}
}

func (l *printLED) Low() {
	if l.on {
		l.on = false
		println("led: idle (tinygo/" + runtime.GOOS + ")")
	}
}
