package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"themed-storefront/internal/server"
)

var (
	commit = "none"
	date   = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "storefront %s\ncommit: %s\nbuilt: %s\n", server.Version, commit, date)
			return nil
		},
	}
}
