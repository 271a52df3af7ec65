package httpstore_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/kanbeads/internal/logging"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/remote/httpstore"
	"github.com/steveyegge/kanbeads/internal/remote/memstore"
	"github.com/steveyegge/kanbeads/internal/server"
	"github.com/steveyegge/kanbeads/internal/types"
)

func newClient(t *testing.T, store remote.DocumentStore) *httpstore.Client {
	t.Helper()
	srv := httptest.NewServer(server.New(store, logging.Nop()).Handler())
	t.Cleanup(srv.Close)
	return httpstore.New(srv.URL, 0)
}

func TestRepositoryOverHTTP(t *testing.T) {
	ctx := context.Background()
	backing := memstore.New(memstore.WithStartID(41))
	c := newClient(t, backing)
	require.NoError(t, c.Health(ctx))

	r := remote.New(c)
	sub, err := r.Subtasks.Create(ctx, &types.Subtask{CardID: types.RemoteID("7"), Title: "Write tests"})
	require.NoError(t, err)
	assert.Equal(t, types.RemoteID("42"), sub.ID)

	require.NoError(t, r.Subtasks.UpdateByID(ctx, sub.ID, map[string]any{"title": "Write more tests"}))
	subs, err := r.Subtasks.ListFor(ctx, types.RemoteID("7"))
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Write more tests", subs[0].Title)

	require.NoError(t, r.Subtasks.DeleteByID(ctx, sub.ID))
	assert.Equal(t, 0, backing.Count(types.KindSubtask))
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	c := newClient(t, memstore.New())
	err := c.Remove(context.Background(), types.KindCard, "404")
	assert.ErrorIs(t, err, remote.ErrNotFound)
	assert.False(t, remote.IsTransient(err))
}

func TestServerErrorsAreTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := httpstore.New(srv.URL, 0)
	_, err := c.List(context.Background(), types.KindCard, "1")
	require.Error(t, err)
	assert.True(t, remote.IsTransient(err))
}

func TestUnreachableServerIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := httpstore.New(url, 0)
	_, err := c.Insert(context.Background(), types.KindBoard, "", []byte(`{"title":"x"}`))
	require.Error(t, err)
	assert.True(t, remote.IsTransient(err), "got %v", err)
}
