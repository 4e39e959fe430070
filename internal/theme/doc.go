// Package theme owns the storefront's closed set of theme presets and the
// process-wide selection of the active one.
//
// Integration example:
//
//	store := theme.NewStore(storage.NewFileStore(path), theme.WithLogger(log))
//	id, cfg := store.Current()
//	page.Background = cfg.Colors.Background
//
//	unsubscribe := store.Subscribe(func(c theme.Change) {
//		rerender(c.Config)
//	})
//	defer unsubscribe()
//
//	if err := store.SetCurrent(theme.ID("theme2")); err != nil {
//		return err // theme.ErrInvalidThemeSelection
//	}
package theme
