package router

import (
	"context"
	"testing"

	"github.com/charmbracelet/ssh"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themed-storefront/internal/sshtest"
	"themed-storefront/internal/storage"
	"themed-storefront/internal/theme"
)

func newStore(t *testing.T) *theme.Store {
	t.Helper()
	return theme.NewStore(storage.NewMemoryStore(), theme.WithLogger(zerolog.Nop()))
}

func TestDefaultChainOrder(t *testing.T) {
	chain := DefaultChain(newStore(t), zerolog.Nop())
	want := []string{"theme-routing", "session-metadata"}
	require.Len(t, chain, len(want))
	for i := range want {
		assert.Equal(t, want[i], chain[i].Name)
	}
}

func TestDefaultChainAttachesMetadataBeforeHandler(t *testing.T) {
	store := newStore(t)
	s := sshtest.NewSession(context.Background(), "theme3", sshtest.Addr("203.0.113.5"))

	called := false
	h := Compose(func(sess ssh.Session) {
		called = true
		identity, ok := IdentityFrom(sess.Context())
		require.True(t, ok)
		assert.Equal(t, theme.Pixelated, identity.Theme)

		info, ok := SessionInfoFrom(sess.Context())
		require.True(t, ok)
		_, err := uuid.Parse(info.ID)
		assert.NoError(t, err)
		assert.Equal(t, "theme3", info.Identity.Username)
		assert.Equal(t, "203.0.113.5:22", info.RemoteAddr)
	}, MiddlewareFromDescriptors(DefaultChain(store, zerolog.Nop()))...)
	h(s)

	assert.True(t, called)
	id, _ := store.Current()
	assert.Equal(t, theme.Pixelated, id)
}

func TestThemeRoutingSelectsNamedTheme(t *testing.T) {
	for _, tc := range []struct {
		user string
		want theme.ID
	}{
		{user: "theme2", want: theme.Dark},
		{user: "THEME3", want: theme.Pixelated},
		{user: "theme1", want: theme.Minimal},
	} {
		t.Run(tc.user, func(t *testing.T) {
			store := newStore(t)
			if tc.want == theme.Minimal {
				require.NoError(t, store.SetCurrent(theme.Dark))
			}
			s := sshtest.NewSession(context.Background(), tc.user, nil)

			themeRouting(store, zerolog.Nop())(func(ssh.Session) {})(s)

			id, _ := store.Current()
			assert.Equal(t, tc.want, id)
			identity, _ := IdentityFrom(s.Context())
			assert.True(t, identity.Selected)
		})
	}
}

func TestThemeRoutingLeavesOtherUsersAlone(t *testing.T) {
	for _, user := range []string{"alice", "", "theme9", "theme"} {
		t.Run(user, func(t *testing.T) {
			store := newStore(t)
			require.NoError(t, store.SetCurrent(theme.Dark))
			s := sshtest.NewSession(context.Background(), user, nil)

			called := false
			themeRouting(store, zerolog.Nop())(func(ssh.Session) { called = true })(s)

			assert.True(t, called, "unknown usernames are never rejected")
			id, _ := store.Current()
			assert.Equal(t, theme.Dark, id)
			identity, ok := IdentityFrom(s.Context())
			require.True(t, ok)
			assert.False(t, identity.Selected)
			assert.Equal(t, user, identity.Username)
		})
	}
}

func TestThemeRoutingNotifiesSubscribers(t *testing.T) {
	store := newStore(t)
	var changes []theme.Change
	store.Subscribe(func(c theme.Change) { changes = append(changes, c) })

	s := sshtest.NewSession(context.Background(), "theme2", nil)
	themeRouting(store, zerolog.Nop())(func(ssh.Session) {})(s)

	require.Len(t, changes, 1)
	assert.Equal(t, theme.Dark, changes[0].Current)
}

func TestSessionMetadataWithoutRouting(t *testing.T) {
	s := sshtest.NewSession(context.Background(), "guest", nil)
	called := false

	sessionMetadata(zerolog.Nop())(func(ssh.Session) { called = true })(s)

	require.True(t, called)
	info, ok := SessionInfoFrom(s.Context())
	require.True(t, ok)
	assert.Equal(t, "guest", info.Identity.Username)
	assert.Empty(t, info.RemoteAddr)
	assert.False(t, info.StartedAt.IsZero())
}

func TestComposeRunsFirstMiddlewareFirst(t *testing.T) {
	var order []string
	mark := func(name string) func(ssh.Handler) ssh.Handler {
		return func(next ssh.Handler) ssh.Handler {
			return func(s ssh.Session) {
				order = append(order, name)
				next(s)
			}
		}
	}

	Compose(func(ssh.Session) { order = append(order, "handler") }, mark("a"), mark("b"))(
		sshtest.NewSession(context.Background(), "guest", nil),
	)
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}
