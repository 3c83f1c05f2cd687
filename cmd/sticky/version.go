package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/aretw0/sticky"
	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sticky",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sticky version %s (%s)\n", strings.TrimSpace(sticky.Version), runtime.Version())
		},
	}
}
