package app

import (
	"fmt"
	"strings"

	"ember/kernel"
)

// monitor draws the task table. It redraws only when the kernel has
// ticked or switched since the last frame.
type monitor struct {
	d     fbDisplay
	title string

	drawn    bool
	ticks    uint64
	switches uint32
}

func (m *monitor) draw(st kernel.Stats, snap []kernel.TaskInfo, trace []string) {
	if !m.d.usable() {
		return
	}
	if m.drawn && st.Ticks == m.ticks && st.Switches == m.switches {
		return
	}
	m.drawn, m.ticks, m.switches = true, st.Ticks, st.Switches

	m.d.fb.ClearRGB(0x10, 0x10, 0x18)
	p := newTextPane(m.d)
	p.line(fmt.Sprintf("%s  t=%d", m.title, st.Ticks), colorHot)
	p.line(fmt.Sprintf("tasks %d  ready %d  blocked %d  waiting %d  sleeping %d  suspended %d",
		st.Tasks, st.Ready, st.Blocked, st.Waiting, st.Sleeping, st.Suspended), colorFG)
	p.line(fmt.Sprintf("mutexes %d  events %d  switches %d", st.Mutexes, st.Events, st.Switches), colorDim)
	p.line("", colorFG)
	p.line(" PID  STATE      BASE  PRIO  TICKS", colorDim)
	for _, ti := range snap {
		c := colorFG
		if ti.PID == st.Current {
			c = colorHot
		}
		p.line(taskRow(ti), c)
	}
	p.line("", colorFG)
	p.line("trace: "+strings.Join(trace, " "), colorDim)
	_ = m.d.Display()
}

func taskRow(ti kernel.TaskInfo) string {
	flags := ""
	if ti.Boosted {
		flags += " boosted"
	}
	if ti.Suspended {
		flags += " suspended"
	}
	return fmt.Sprintf("%4d  %-9s  %4d  %4d  %5d%s", ti.PID, ti.State, ti.Base, ti.Priority, ti.Ticks, flags)
}
