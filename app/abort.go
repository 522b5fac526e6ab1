package app

import (
	"fmt"
	"strings"

	"ember/hal"
	"ember/kernel"
)

// logAbort writes the diagnostic and stack to the HAL logger, one line each.
func logAbort(l hal.Logger, info kernel.AbortInfo) {
	if l == nil {
		return
	}
	l.WriteLineString(fmt.Sprintf("Ember Abort: code=%d (%s) task=%d %s", uint8(info.Code), info.Code, info.PID, info.Detail))
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line == "" {
			continue
		}
		l.WriteLineString(line)
	}
}

// drawAbort replaces the monitor with the diagnostic screen.
func drawAbort(d fbDisplay, info kernel.AbortInfo) {
	if !d.usable() {
		return
	}
	d.fb.ClearRGB(255, 255, 255)
	p := newTextPane(d)
	p.line("Ember Abort:", colorBad)
	p.line(fmt.Sprintf("code: %d (%s)", uint8(info.Code), info.Code), colorInk)
	p.line(fmt.Sprintf("task: %d", info.PID), colorInk)
	if info.Detail != "" {
		p.line("detail: "+info.Detail, colorInk)
	}
	if len(info.Stack) > 0 {
		p.line("stack:", colorInk)
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			p.line(strings.TrimLeft(line, "\t "), colorInk)
			if p.full() {
				break
			}
		}
	} else {
		p.line("stack: unavailable", colorInk)
	}
	_ = d.Display()
}
