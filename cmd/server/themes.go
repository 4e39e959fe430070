package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"themed-storefront/internal/logger"
	"themed-storefront/internal/storage"
	"themed-storefront/internal/theme"
)

type themesOptions struct {
	jsonOutput bool
}

func newThemesCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "themes",
		Short: "Inspect or change the persisted theme",
	}
	cmd.AddCommand(newThemesListCmd(flags))
	cmd.AddCommand(newThemesSetCmd(flags))
	return cmd
}

func newThemesListCmd(flags *rootFlags) *cobra.Command {
	opts := &themesOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available themes and mark the active one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(cmd, flags)
			if err != nil {
				return err
			}
			return runThemesList(cmd, store, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func runThemesList(cmd *cobra.Command, store *theme.Store, opts *themesOptions) error {
	current, _ := store.Current()

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Current theme.ID       `json:"current"`
			Themes  []theme.Config `json:"themes"`
		}{Current: current, Themes: store.Themes()})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTIVE\tID\tNAME\tNAVIGATION")
	for _, cfg := range store.Themes() {
		marker := ""
		if cfg.Name == current {
			marker = "*"
		}
		nav := "top bar"
		if cfg.Layout.HasSidebar {
			nav = "sidebar"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, cfg.Name, cfg.DisplayName, nav)
	}
	return w.Flush()
}

func newThemesSetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <theme>",
		Short: "Persist the active theme; a running server picks it up on restart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, prefs, err := openStore(cmd, flags)
			if err != nil {
				return err
			}
			id, ok := theme.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown theme %q (want one of %v)", args[0], theme.IDs())
			}
			if err := store.SetCurrent(id); err != nil {
				return err
			}
			// The store only warns when saving fails; this command exists to save.
			saved, err := prefs.Get(theme.PreferenceKey)
			if err != nil {
				return fmt.Errorf("theme %s not saved to %s: %w", id, prefs.Path(), err)
			}
			if saved != string(id) {
				return fmt.Errorf("theme %s not saved to %s: file holds %q", id, prefs.Path(), saved)
			}
			_, cfg := store.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "active theme: %s (%s)\n", cfg.DisplayName, cfg.Name)
			return nil
		},
	}
}

// openStore reads the persisted selection. Persistence failures surface as
// warnings on stderr.
func openStore(cmd *cobra.Command, flags *rootFlags) (*theme.Store, *storage.FileStore, error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logger.Options{Level: "warn", HumanReadable: true, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return nil, nil, err
	}
	prefs := storage.NewFileStore(cfg.PreferencesPath)
	return theme.NewStore(prefs, theme.WithLogger(log)), prefs, nil
}
