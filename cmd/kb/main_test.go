package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/steveyegge/kanbeads/internal/boardfile"
	"github.com/steveyegge/kanbeads/internal/config"
	"github.com/steveyegge/kanbeads/internal/reconcile"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/remote/memstore"
	"github.com/steveyegge/kanbeads/internal/templates"
	"github.com/steveyegge/kanbeads/internal/types"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "kb-cmd-test-*")
	if err != nil {
		panic(err)
	}
	_ = os.Setenv("HOME", dir)
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}
	_ = config.Initialize()
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// useManager installs a manager over an in-memory store as the CLI's.
func useManager(t *testing.T) *memstore.Store {
	t.Helper()
	prevQuiet := quietFlag
	quietFlag = true
	store := memstore.New()
	bus, rec := newBus(zap.NewNop())
	recorder = rec
	manager = reconcile.New(remote.New(store),
		reconcile.WithNotifier(bus),
		reconcile.WithAuthorizer(newAuthorizer(zap.NewNop())),
	)
	t.Cleanup(func() {
		_ = manager.Close()
		manager, recorder = nil, nil
		quietFlag = prevQuiet
	})
	return store
}

func kanbanBoard(t *testing.T, title string) *types.Board {
	t.Helper()
	tmpl, err := templates.Load(templates.DefaultName, templates.LoadOptions{})
	require.NoError(t, err)
	b, err := tmpl.Instantiate(manager, title, time.Now())
	require.NoError(t, err)
	settle()
	saved, ok := manager.Board(savedID(b.ID))
	require.True(t, ok)
	return saved
}

func TestSavedIDFollowsReconciliation(t *testing.T) {
	useManager(t)
	board := kanbanBoard(t, "Sprint")
	assert.False(t, board.ID.IsTemp())

	col := manager.Columns(board.ID)[0]
	c, err := manager.CreateCard(&types.Card{Title: "Write docs", ColumnID: col.ID})
	require.NoError(t, err)
	require.True(t, c.ID.IsTemp())
	settle()

	id := savedID(c.ID)
	assert.False(t, id.IsTemp())
	saved, ok := manager.Card(id)
	require.True(t, ok)
	assert.Equal(t, "Write docs", saved.Title)
	assert.Equal(t, id, savedID(id), "saved IDs map to themselves")
}

func TestBuildCard(t *testing.T) {
	useManager(t)
	board := kanbanBoard(t, "Sprint")
	cols := manager.Columns(board.ID)
	require.Len(t, cols, 3)

	design, err := manager.CreateCard(&types.Card{Title: "Design", ColumnID: cols[0].ID})
	require.NoError(t, err)
	settle()
	designID := savedID(design.ID)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	card, err := buildCard(board, cardInput{
		Title:     "  Build  ",
		Column:    "em andamento",
		Priority:  "high",
		Due:       "+2d",
		DependsOn: []string{"design", " "},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "Build", card.Title)
	assert.Equal(t, cols[1].ID, card.ColumnID)
	assert.Equal(t, types.PriorityHigh, card.Priority)
	require.NotNil(t, card.DueDate)
	assert.True(t, card.DueDate.Equal(now.AddDate(0, 0, 2)))
	require.Len(t, card.Dependencies, 1)
	assert.Equal(t, designID, card.Dependencies[0].TargetID)

	t.Run("defaults", func(t *testing.T) {
		card, err := buildCard(board, cardInput{Title: "Plain"}, now)
		require.NoError(t, err)
		assert.Equal(t, cols[0].ID, card.ColumnID)
		assert.Equal(t, types.PriorityMedium, card.Priority)
		assert.Nil(t, card.DueDate)
		assert.Empty(t, card.Dependencies)
	})

	t.Run("rejects", func(t *testing.T) {
		for name, in := range map[string]cardInput{
			"priority":   {Title: "x", Priority: "whenever"},
			"column":     {Title: "x", Column: "Nowhere"},
			"due":        {Title: "x", Due: "xyzzy"},
			"depends-on": {Title: "x", DependsOn: []string{"no such card"}},
		} {
			_, err := buildCard(board, in, now)
			assert.Error(t, err, name)
		}
	})
}

func TestMoveThroughManagerIsDeniedInPortuguese(t *testing.T) {
	useManager(t)
	board := kanbanBoard(t, "Release")
	cols := manager.Columns(board.ID)

	a, err := manager.CreateCard(&types.Card{Title: "A", ColumnID: cols[0].ID})
	require.NoError(t, err)
	settle()
	target, _ := manager.Card(savedID(a.ID))
	b, err := manager.CreateCard(&types.Card{Title: "B", ColumnID: cols[0].ID, Dependencies: []types.Dependency{types.DependsOn(target)}})
	require.NoError(t, err)
	settle()

	v, err := manager.Authorize(savedID(b.ID), cols[2].ID)
	require.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.Contains(t, v.Reason, "dependências não concluídas")
}

func TestEvaluateSnapshot(t *testing.T) {
	useManager(t)
	board := kanbanBoard(t, "Launch")
	cols := manager.Columns(board.ID)
	spec, err := manager.CreateCard(&types.Card{Title: "Write spec", ColumnID: cols[0].ID})
	require.NoError(t, err)
	settle()
	saved, _ := manager.Card(savedID(spec.ID))
	_, err = manager.CreateCard(&types.Card{Title: "Build it", ColumnID: cols[0].ID, Dependencies: []types.Dependency{types.DependsOn(saved)}})
	require.NoError(t, err)
	settle()

	path := filepath.Join(t.TempDir(), "launch.yaml")
	require.NoError(t, boardfile.WriteFile(path, boardfile.Export(manager, nil, time.Now())))
	snap, err := boardfile.ReadFile(path)
	require.NoError(t, err)

	reports, warnings, err := evaluateSnapshot(snap, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "Launch", r.Board.Title)
	require.Len(t, r.Ready, 1)
	assert.Equal(t, "Write spec", r.Ready[0].Title)
	require.Len(t, r.Blocked, 1)
	assert.Equal(t, "Build it", r.Blocked[0].Card.Title)
	require.Len(t, r.Blocked[0].Unmet, 1)
	assert.Equal(t, "Write spec", r.Blocked[0].Unmet[0].Title)
}

func TestReadSubtasksKeepsOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subtasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`- id: "7"
  completed: true
- title: New one
`), 0o600))

	current := []*types.Subtask{{ID: types.RemoteID("7"), Title: "old", Priority: types.PriorityHigh}}
	subs, err := readSubtasks(path, current)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, types.RemoteID("7"), subs[0].ID)
	assert.Equal(t, "old", subs[0].Title)
	assert.Equal(t, types.PriorityHigh, subs[0].Priority)
	assert.True(t, subs[0].Completed)
	assert.False(t, current[0].Completed, "current list is not modified")

	assert.True(t, subs[1].ID.IsZero())
	assert.Equal(t, "New one", subs[1].Title)
	assert.Equal(t, types.PriorityMedium, subs[1].Priority)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]any{"id": types.RemoteID("42"), "priority": types.PriorityCritical}))
	assert.JSONEq(t, `{"id":"42","priority":"critical"}`, buf.String())
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
}

func TestSkipsStore(t *testing.T) {
	parent := &cobra.Command{Use: "config", Annotations: map[string]string{skipStoreAnnotation: "true"}}
	child := &cobra.Command{Use: "get"}
	parent.AddCommand(child)
	assert.True(t, skipsStore(child))
	assert.False(t, skipsStore(&cobra.Command{Use: "ready"}))

	for _, cmd := range []*cobra.Command{initCmd, configGetCmd, watchCmd, serveCmd, versionCmd, boardTemplatesCmd} {
		assert.True(t, skipsStore(cmd), cmd.Name())
	}
	for _, cmd := range []*cobra.Command{readyCmd, cardMoveCmd, exportCmd, boardShowCmd} {
		assert.False(t, skipsStore(cmd), cmd.Name())
	}
}

func TestOpenStoreFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	rs := config.GetRemoteSettings()
	rs.Backend = config.BackendFile
	rs.Path = path

	s, err := openStore(t.Context(), rs)
	require.NoError(t, err)
	_, err = s.Insert(t.Context(), types.KindBoard, "", []byte(`{"title":"Saved"}`))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := openStore(t.Context(), rs)
	require.NoError(t, err)
	docs, err := reopened.List(t.Context(), types.KindBoard, "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.NoError(t, reopened.Close())
}

func TestOpenStoreRequiresURL(t *testing.T) {
	rs := config.GetRemoteSettings()
	rs.Backend = config.BackendRedis
	rs.URL = ""
	_, err := openStore(t.Context(), rs)
	assert.Error(t, err)
}
