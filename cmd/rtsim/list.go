package main

import (
	"fmt"

	"ember/scenario"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, name := range scenario.Names() {
			s, err := scenario.Load(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-18s %s\n", name, firstLine(s.Description))
		}
		return nil
	},
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
