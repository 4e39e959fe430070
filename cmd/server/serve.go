package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"themed-storefront/internal/catalog"
	"themed-storefront/internal/logger"
	"themed-storefront/internal/server"
	"themed-storefront/internal/storage"
	"themed-storefront/internal/theme"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the storefront over HTTP and SSH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
}

func runServe(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := flags.load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Options{
		Level:         cfg.Log.Level,
		HumanReadable: cfg.Log.Format == "console",
		Writer:        cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	store := theme.NewStore(storage.NewFileStore(cfg.PreferencesPath), theme.WithLogger(log))
	cache := catalog.NewCache(
		catalog.NewClient(cfg.Products.URL, nil),
		catalog.WithFetchTimeout(cfg.Products.FetchTimeout),
		catalog.WithCacheLogger(log),
	)

	runtime, err := server.New(cfg, server.Deps{
		Store:  store,
		Cache:  cache,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	if err := runtime.Run(cmd.Context()); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}
