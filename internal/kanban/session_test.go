package kanban_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"boardd/internal/kanban"
	"boardd/internal/provider"
	"boardd/internal/provider/github"
	"boardd/internal/store"
)

func newSessions(st *store.MemoryStore) *kanban.Sessions {
	providers := provider.NewRegistry()
	providers.Register(github.Name, github.New())
	return kanban.NewSessions(st, providers, zap.NewNop())
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sessions := newSessions(st)

	t.Run("empty token is an auth error", func(t *testing.T) {
		_, err := sessions.Authenticate(ctx, "")
		var authErr *kanban.AuthError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("unknown token is an auth error", func(t *testing.T) {
		_, err := sessions.Authenticate(ctx, "bogus")
		var authErr *kanban.AuthError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("create issues a token that resolves to the user", func(t *testing.T) {
		user, err := sessions.Create(ctx, kanban.Credentials{Provider: "github", Login: "octocat"})
		require.NoError(t, err)
		require.NotEmpty(t, user.Token)

		resolved, err := sessions.Authenticate(ctx, user.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
	})

	t.Run("second login reuses the account and token", func(t *testing.T) {
		first, err := sessions.Create(ctx, kanban.Credentials{Provider: "github", Login: "hubber"})
		require.NoError(t, err)
		second, err := sessions.Create(ctx, kanban.Credentials{Provider: "github", Login: "hubber"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.Token, second.Token)
	})

	t.Run("unknown provider is rejected", func(t *testing.T) {
		_, err := sessions.Create(ctx, kanban.Credentials{Provider: "sourceforge", Login: "x"})
		var authErr *kanban.AuthError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("missing login is rejected", func(t *testing.T) {
		_, err := sessions.Create(ctx, kanban.Credentials{Provider: "github"})
		var authErr *kanban.AuthError
		assert.ErrorAs(t, err, &authErr)
	})
}
