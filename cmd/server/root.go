package main

import (
	"github.com/spf13/cobra"

	"themed-storefront/internal/config"
)

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Themed storefront served over HTTP and SSH",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file; STOREFRONT_* env vars override it")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newThemesCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (f *rootFlags) load() (config.Config, error) {
	return config.Load(f.configPath)
}
