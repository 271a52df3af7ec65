//go:build integration

package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/dolt"

	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

func TestDoltServerRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctr, err := dolt.Run(ctx, "dolthub/dolt-sql-server:1.43.0",
		dolt.WithDatabase("kanbeads"),
		dolt.WithUsername("kb"),
		dolt.WithPassword("kb"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	r := remote.New(s)
	board, err := r.Boards.Create(ctx, &types.Board{Title: "Sprint"})
	require.NoError(t, err)
	card, err := r.Cards.Create(ctx, &types.Card{Title: "A", BoardID: board.ID, ColumnID: types.RemoteID("1")})
	require.NoError(t, err)

	require.NoError(t, r.Cards.UpdateByID(ctx, card.ID, map[string]any{"title": "A2"}))
	cards, err := r.Cards.ListFor(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "A2", cards[0].Title)

	require.NoError(t, r.Cards.DeleteByID(ctx, card.ID))
	assert.ErrorIs(t, r.Cards.DeleteByID(ctx, card.ID), remote.ErrNotFound)
}
