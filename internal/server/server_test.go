package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/steveyegge/kanbeads/internal/logging"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/remote/memstore"
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInsertAndList(t *testing.T) {
	h := New(memstore.New(), logging.Nop()).Handler()

	rec := do(t, h, http.MethodPost, "/v1/card?parent=3", `{"title":"A","columnId":"5"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created WireDocument
	require.NoError(t, sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "1", created.ID)
	assert.Equal(t, "3", created.ParentID)

	rec = do(t, h, http.MethodPatch, "/v1/card/1", `{"title":"B","description":null}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/card?parent=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var docs []WireDocument
	require.NoError(t, sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	var body map[string]any
	require.NoError(t, sonic.ConfigStd.Unmarshal(docs[0].Body, &body))
	assert.Equal(t, "B", body["title"])
}

func TestRejectsUnknownKindAndBadBodies(t *testing.T) {
	h := New(memstore.New(), logging.Nop()).Handler()

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/widget", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/card", `[1,2]`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/v1/card/1", `nope`).Code)
}

func TestStoreErrorsMapToStatus(t *testing.T) {
	store := memstore.New()
	tl := logging.NewTestLogger()
	h := New(store, tl.Logger).Handler()

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/v1/card/9", "").Code)

	store.SetInterceptor(func(ctx context.Context, call memstore.Call) error {
		return remote.Transient(errors.New("backend restarting"))
	})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/v1/card?parent=1", "").Code)
	tl.AssertLogged(t, zapcore.WarnLevel, "transient store failure")
}

func TestHealthz(t *testing.T) {
	h := New(memstore.New(), logging.Nop()).Handler()
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
