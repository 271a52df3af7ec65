package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/kanbeads/internal/reconcile"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/remote/memstore"
	"github.com/steveyegge/kanbeads/internal/types"
)

// isolate points the user config directory at a temp dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestBuiltinsParse(t *testing.T) {
	isolate(t)
	infos := List(LoadOptions{})
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
		assert.Contains(t, info.Source, "builtin:")
	}
	assert.Equal(t, []string{"kanban", "release", "scrum"}, names)

	tpl, err := Load("", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultName, tpl.Name)
	assert.Len(t, tpl.Columns, 3)
}

func TestLoadUnknown(t *testing.T) {
	isolate(t)
	_, err := Load("nope", LoadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = Load("../etc/passwd", LoadOptions{})
	assert.Error(t, err)
}

func TestProjectTemplateShadowsBuiltin(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	dir := filepath.Join(project, "templates")
	require.NoError(t, os.MkdirAll(dir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kanban.toml"), []byte(`
name = "kanban"
description = "two columns"
[[columns]]
name = "Open"
[[columns]]
name = "Done"
`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte(`name = `), 0600))

	tpl, err := Load("kanban", LoadOptions{ProjectDir: project})
	require.NoError(t, err)
	assert.Len(t, tpl.Columns, 2)
	assert.Equal(t, filepath.Join(dir, "kanban.toml"), tpl.Source)

	infos := List(LoadOptions{ProjectDir: project})
	require.Len(t, infos, 3, "broken template is skipped")
	assert.Equal(t, "two columns", infos[0].Description)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"no columns":     `name = "x"`,
		"unknown key":    "name = \"x\"\ncolour = \"red\"\n[[columns]]\nname = \"A\"",
		"dup column":     "name = \"x\"\n[[columns]]\nname = \"A\"\n[[columns]]\nname = \"A\"",
		"unknown column": "name = \"x\"\n[[columns]]\nname = \"A\"\n[[cards]]\ntitle = \"c\"\ncolumn = \"B\"",
		"bad priority":   "name = \"x\"\n[[columns]]\nname = \"A\"\n[[cards]]\ntitle = \"c\"\npriority = \"urgent!\"",
		"forward dep":    "name = \"x\"\n[[columns]]\nname = \"A\"\n[[cards]]\ntitle = \"c\"\ndepends_on = [\"d\"]\n[[cards]]\ntitle = \"d\"",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestInstantiateRelease(t *testing.T) {
	isolate(t)
	store := memstore.New()
	m := reconcile.New(remote.New(store))
	t.Cleanup(func() { _ = m.Close() })

	tpl, err := Load("release", LoadOptions{})
	require.NoError(t, err)
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	board, err := tpl.Instantiate(m, "Release 2.0", now)
	require.NoError(t, err)
	assert.True(t, board.ID.IsTemp())

	m.Wait()
	assert.Equal(t, 1, store.Count(types.KindBoard))
	assert.Equal(t, 4, store.Count(types.KindColumn))
	assert.Equal(t, 3, store.Count(types.KindCard))
	assert.Equal(t, 4, store.Count(types.KindSubtask))

	require.NoError(t, m.LoadAll(context.Background()))
	boards := m.Boards()
	require.Len(t, boards, 1)
	publish, err := m.ResolveCard("Publicar release")
	require.NoError(t, err)
	require.Len(t, publish.Dependencies, 1)
	assert.False(t, publish.Dependencies[0].TargetID.IsTemp())
	assert.Equal(t, types.PriorityCritical, publish.Priority)

	blocked := m.Blocked(boards[0].ID)
	assert.Len(t, blocked, 2)
}

func TestInstantiateDueDates(t *testing.T) {
	isolate(t)
	m := reconcile.New(remote.New(memstore.New()))
	t.Cleanup(func() { _ = m.Close() })

	tpl, err := Load("scrum", LoadOptions{})
	require.NoError(t, err)
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	_, err = tpl.Instantiate(m, "Sprint 1", now)
	require.NoError(t, err)
	m.Wait()

	planning, err := m.ResolveCard("Sprint planning")
	require.NoError(t, err)
	require.NotNil(t, planning.DueDate)
	assert.True(t, planning.DueDate.Equal(now.AddDate(0, 0, 1)))
	assert.Len(t, m.Subtasks(planning.ID), 3)
}
