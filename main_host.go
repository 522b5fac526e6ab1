//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"ember/app"
	"ember/hal"
	"ember/kernel"
)

func main() {
	var cfg hal.HeadlessConfig
	var appCfg app.Config
	var configPath string
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 0, "Tick rate in headless mode (0 = one tick per kernel tick period).")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run until the scenario ends).")
	flag.StringVar(&appCfg.Scenario, "scenario", app.DefaultScenario, "Built-in scenario name or YAML file.")
	flag.StringVar(&configPath, "config", "", "Kernel config YAML (defaults are embedded).")
	flag.Parse()

	if configPath != "" {
		kcfg, err := kernel.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		appCfg.Kernel = kcfg
	}

	if cfg.Enabled {
		if cfg.Hz == 0 && appCfg.Kernel.TickPeriod > 0 {
			cfg.Hz = int(1e9 / appCfg.Kernel.TickPeriod.Nanoseconds())
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, func(h hal.HAL) func() error {
			return app.NewWithConfig(h, appCfg)
		}, cfg); err != nil {
			if err == context.Canceled {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	appCfg.HoldOnAbort = true
	if err := hal.RunWindow(func(h hal.HAL) func() error {
		return app.NewWithConfig(h, appCfg)
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
