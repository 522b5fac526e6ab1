// Command rtsim runs kernel scenarios on the host.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string

	rootCmd = &cobra.Command{
		Use:           "rtsim",
		Short:         "Run real-time kernel scenarios",
		Long:          "rtsim loads scripted task sets into the kernel and reports the order in which the tasks ran.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Kernel log level.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Kernel config YAML (defaults are embedded).")
	rootCmd.AddCommand(listCmd, runCmd, stepCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
