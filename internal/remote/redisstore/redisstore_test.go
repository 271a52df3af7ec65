package redisstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := New(client, "test")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestInsertPatchList(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	doc, err := s.Insert(ctx, types.KindCard, "b1", []byte(`{"title":"A","position":0}`))
	require.NoError(t, err)
	assert.Equal(t, "1", doc.ID)
	assert.True(t, mr.Exists("test:card:doc:1"))

	_, err = s.Insert(ctx, types.KindCard, "b1", []byte(`{"title":"B","position":1}`))
	require.NoError(t, err)
	_, err = s.Insert(ctx, types.KindCard, "b2", []byte(`{"title":"C"}`))
	require.NoError(t, err)

	require.NoError(t, s.Patch(ctx, types.KindCard, "1", map[string]any{"title": "A2", "position": 3}))

	docs, err := s.List(ctx, types.KindCard, "b1")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var first map[string]any
	require.NoError(t, remote.Unmarshal(docs[0].Body, &first))
	assert.Equal(t, "A2", first["title"])
	assert.EqualValues(t, 3, first["position"])
	assert.Equal(t, "1", first["id"])
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	doc, err := s.Insert(ctx, types.KindSubtask, "c1", []byte(`{"title":"s"}`))
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, types.KindSubtask, doc.ID))
	assert.False(t, mr.Exists("test:subtask:doc:"+doc.ID))

	docs, err := s.List(ctx, types.KindSubtask, "c1")
	require.NoError(t, err)
	assert.Empty(t, docs)

	err = s.Remove(ctx, types.KindSubtask, doc.ID)
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestPatchMissing(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Patch(context.Background(), types.KindCard, "99", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestRepositoryOverRedis(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	r := remote.New(s)

	board, err := r.Boards.Create(ctx, &types.Board{Title: "Sprint"})
	require.NoError(t, err)
	col, err := r.Columns.Create(ctx, &types.Column{BoardID: board.ID, Name: "Concluído"})
	require.NoError(t, err)

	cols, err := r.Columns.ListFor(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, col.ID, cols[0].ID)
	assert.Equal(t, "Concluído", cols[0].Name)
}

func TestServerDownIsTransient(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()
	_, err := s.Insert(context.Background(), types.KindCard, "b", []byte(`{}`))
	require.Error(t, err)
	assert.True(t, remote.IsTransient(err), "got %v", err)
	assert.False(t, errors.Is(err, remote.ErrNotFound))
}
