package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"ember/kernel"
	"ember/scenario"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	runOpts = struct {
		all      bool
		switches bool
		noCheck  bool
	}{}

	runCmd = &cobra.Command{
		Use:   "run [scenario|file.yaml]...",
		Short: "Run scenarios under the virtual clock",
		Long:  "Run each scenario to completion, print its trace and compare it with the expected one.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runOpts.all {
				args = scenario.Names()
			}
			if len(args) == 0 {
				return cmd.Help()
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			failed := 0
			for _, ref := range args {
				ok, err := runOne(ctx, cmd, ref)
				if err != nil {
					return err
				}
				if !ok {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
			}
			return nil
		},
	}
)

func init() {
	runCmd.Flags().BoolVarP(&runOpts.all, "all", "a", false, "Run every built-in scenario.")
	runCmd.Flags().BoolVarP(&runOpts.switches, "switches", "s", false, "Print every context switch.")
	runCmd.Flags().BoolVar(&runOpts.noCheck, "no-check", false, "Do not compare against the expected trace.")
}

func loadConfig() (kernel.Config, error) {
	if configPath == "" {
		return kernel.DefaultConfig(), nil
	}
	return kernel.LoadConfig(configPath)
}

func runOne(ctx context.Context, cmd *cobra.Command, ref string) (bool, error) {
	s, err := scenario.Open(ref)
	if err != nil {
		return false, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return false, err
	}
	r, err := scenario.NewRunner(s, scenario.Options{Config: cfg, Logger: logrus.StandardLogger()})
	if err != nil {
		return false, err
	}
	res := r.Run(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s (%d ticks", s.Name, strings.Join(res.Trace, ","), res.Ticks)
	if res.Err != nil {
		fmt.Fprintf(out, ", %v", res.Err)
	}
	fmt.Fprintln(out, ")")
	if runOpts.switches {
		printSwitches(cmd, r.Kernel().Trace(nil))
	}
	if runOpts.noCheck {
		return true, nil
	}
	if err := s.Check(res); err != nil {
		fmt.Fprintf(out, "  FAIL %v\n", err)
		return false, nil
	}
	fmt.Fprintln(out, "  ok")
	return true, nil
}

func printSwitches(cmd *cobra.Command, evs []kernel.TraceEvent) {
	out := cmd.OutOrStdout()
	for _, ev := range evs {
		fmt.Fprintf(out, "  t=%-5d %3d -> %-3d prio %d\n", ev.Tick, ev.From, ev.To, ev.Priority)
	}
}
