package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"ember/kernel"
	"ember/scenario"

	"github.com/mattn/go-tty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const settleTimeout = 200 * time.Millisecond

var stepCmd = &cobra.Command{
	Use:   "step <scenario|file.yaml>",
	Short: "Step a scenario one tick per key press",
	Long:  "Run a scenario on a clock driven by the keyboard: space or enter advances one tick, digits advance that many, q quits.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.Open(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		r, err := scenario.NewRunner(s, scenario.Options{Config: cfg, Logger: logrus.StandardLogger(), Realtime: true})
		if err != nil {
			return err
		}

		t, err := tty.Open()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		defer t.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		done := make(chan scenario.Result, 1)
		go func() { done <- r.Run(ctx) }()

		keys := make(chan rune)
		go func() {
			defer close(keys)
			for {
				ch, err := t.ReadRune()
				if err != nil {
					return
				}
				keys <- ch
			}
		}()

		return stepLoop(cmd.OutOrStdout(), r, keys, done)
	},
}

func stepLoop(out io.Writer, r *scenario.Runner, keys <-chan rune, done <-chan scenario.Result) error {
	k := r.Kernel()
	// Keys act on a running kernel only: a tick before Start would pass
	// with nobody asleep, and a quit would halt it at its first request.
	select {
	case <-k.Started():
	case res := <-done:
		return finishStep(out, r, res)
	}

	shown := 0
	show := func() {
		settle(k)
		trace := r.Trace()
		for _, name := range trace[shown:] {
			fmt.Fprintf(out, "t=%-5d %s\r\n", k.Now(), name)
		}
		shown = len(trace)
		if k.Stats().Tasks == 0 {
			k.Shutdown()
		}
	}
	fmt.Fprintf(out, "%s: space/enter = 1 tick, 1-9 = n ticks, s = stats, q = quit\r\n", r.Script().Name)
	show()

	for {
		select {
		case res := <-done:
			return finishStep(out, r, res)
		case key, ok := <-keys:
			if !ok {
				k.Shutdown()
				keys = nil
				continue
			}
			switch {
			case key == 'q' || key == 3:
				k.Shutdown()
			case key == ' ' || key == '\r' || key == '\n':
				k.OnTick()
			case key >= '1' && key <= '9':
				for i := 0; i < int(key-'0'); i++ {
					k.OnTick()
					settle(k)
				}
			case key == 's':
				printStats(out, k)
				continue
			default:
				continue
			}
			show()
		}
	}
}

func finishStep(out io.Writer, r *scenario.Runner, res scenario.Result) error {
	if res.Err != nil {
		fmt.Fprintf(out, "halted at t=%d: %v\r\n", res.Ticks, res.Err)
	} else {
		fmt.Fprintf(out, "finished at t=%d\r\n", res.Ticks)
	}
	return r.Script().Check(res)
}

// settle waits for the kernel to go idle after a tick, or gives up if a
// task keeps the processor.
func settle(k *kernel.Kernel) {
	deadline := time.Now().Add(settleTimeout)
	for time.Now().Before(deadline) {
		s := k.Stats()
		if s.Halted || (s.Current == kernel.IdlePID && !s.WakePending) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func printStats(out io.Writer, k *kernel.Kernel) {
	s := k.Stats()
	fmt.Fprintf(out, "t=%d running=%d tasks=%d ready=%d blocked=%d waiting=%d sleeping=%d suspended=%d\r\n",
		s.Ticks, s.Current, s.Tasks, s.Ready, s.Blocked, s.Waiting, s.Sleeping, s.Suspended)
	for _, ti := range k.Snapshot(nil) {
		boost := ""
		if ti.Boosted {
			boost = fmt.Sprintf(" (base %d)", ti.Base)
		}
		fmt.Fprintf(out, "  pid %-3d %-8s prio %d%s ticks %d\r\n", ti.PID, ti.State, ti.Priority, boost, ti.Ticks)
	}
}
