package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/steveyegge/kanbeads/internal/deps"
	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/remote/memstore"
	"github.com/steveyegge/kanbeads/internal/types"
)

func subtaskTitles(subs []*types.Subtask) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.Title
	}
	return out
}

func TestReplaceSubtasksDiffs(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, "Release", "A fazer")
	for _, title := range []string{"one", "two", "three"} {
		_, err := f.m.CreateSubtask(&types.Subtask{CardID: card.ID, Title: title})
		require.NoError(t, err)
	}
	f.m.Wait()
	subs := f.m.Subtasks(card.ID)
	require.Len(t, subs, 3)
	first := subs[0].ID

	err := f.m.ReplaceSubtasks(card.ID, []*types.Subtask{
		{ID: first, Title: "one, renamed"},
		{Title: "four"},
	})
	require.NoError(t, err)
	f.m.Wait()

	got := f.m.Subtasks(card.ID)
	assert.Equal(t, []string{"one, renamed", "four"}, subtaskTitles(got))
	for i, s := range got {
		assert.Equal(t, i, s.Position)
		assert.False(t, s.ID.IsTemp())
	}
	assert.Equal(t, first, got[0].ID)
	assert.Equal(t, 2, f.store.Count(types.KindSubtask))
	assert.Equal(t, 2, countCalls(f.store, memstore.OpRemove, types.KindSubtask))
	assert.Equal(t, "one, renamed", docField(t, f.store, types.KindSubtask, first, "title"))
}

func TestReplaceSubtasksRejectsForeignIDs(t *testing.T) {
	f := newFixture(t)
	a := f.createCard(t, "A", "A fazer")
	b := f.createCard(t, "B", "A fazer")
	s, err := f.m.CreateSubtask(&types.Subtask{CardID: b.ID, Title: "elsewhere"})
	require.NoError(t, err)
	f.m.Wait()
	s = f.m.Subtasks(b.ID)[0]

	err = f.m.ReplaceSubtasks(a.ID, []*types.Subtask{{ID: s.ID, Title: "stolen"}})
	require.ErrorIs(t, err, ErrNotFound)
	err = f.m.ReplaceSubtasks(b.ID, []*types.Subtask{{ID: s.ID, Title: "x"}, {ID: s.ID, Title: "y"}})
	require.Error(t, err)
	err = f.m.ReplaceSubtasks(b.ID, []*types.Subtask{{Title: "  "}})
	require.Error(t, err)

	assert.Equal(t, []string{"elsewhere"}, subtaskTitles(f.m.Subtasks(b.ID)))
}

func TestSetSubtaskCompletedStampsTime(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, "Release", "A fazer")
	_, err := f.m.CreateSubtask(&types.Subtask{CardID: card.ID, Title: "tag"})
	require.NoError(t, err)
	f.m.Wait()
	id := f.m.Subtasks(card.ID)[0].ID

	require.NoError(t, f.m.SetSubtaskCompleted(id, true))
	f.m.Wait()
	s, ok := f.m.Subtask(id)
	require.True(t, ok)
	assert.True(t, s.Completed)
	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, true, docField(t, f.store, types.KindSubtask, id, "completed"))
	assert.NotNil(t, docField(t, f.store, types.KindSubtask, id, "completedAt"))

	require.NoError(t, f.m.SetSubtaskCompleted(id, false))
	f.m.Wait()
	s, _ = f.m.Subtask(id)
	assert.Nil(t, s.CompletedAt)
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	f := newFixture(t)
	a := f.createCard(t, "A", "A fazer")
	b := f.createCard(t, "B", "A fazer", types.DependsOn(a))

	err := f.m.AddDependency(a.ID, types.Dependency{TargetID: b.ID})
	require.ErrorIs(t, err, deps.ErrCycle)
	local, _ := f.m.Card(a.ID)
	assert.Empty(t, local.Dependencies)
}

func TestUpdateDependenciesRejectsCycle(t *testing.T) {
	f := newFixture(t)
	a := f.createCard(t, "A", "A fazer")
	f.createCard(t, "B", "A fazer", types.DependsOn(a))

	err := f.m.UpdateCard(a.ID, map[string]any{"dependencies": []map[string]any{{"title": "B"}}})
	require.ErrorIs(t, err, deps.ErrCycle)

	err = f.m.UpdateCard(a.ID, map[string]any{"dependencies": []map[string]any{{"title": "A"}}})
	require.ErrorIs(t, err, deps.ErrSelfDependency)

	f.m.Wait()
	local, _ := f.m.Card(a.ID)
	assert.Empty(t, local.Dependencies)
	assert.Nil(t, docField(t, f.store, types.KindCard, a.ID, "dependencies"))
	assert.Empty(t, deps.DetectCycles(f.m.Cards(f.board.ID)))
}

func TestUpdateDependenciesReplacesList(t *testing.T) {
	f := newFixture(t)
	a := f.createCard(t, "A", "A fazer")
	b := f.createCard(t, "B", "A fazer")
	c := f.createCard(t, "C", "A fazer", types.DependsOn(a))

	require.NoError(t, f.m.UpdateCard(c.ID, map[string]any{
		"dependencies": []map[string]any{{"title": "B"}},
	}))
	f.m.Wait()
	local, _ := f.m.Card(c.ID)
	require.Len(t, local.Dependencies, 1)
	assert.Equal(t, "B", local.Dependencies[0].Title)
	assert.Empty(t, f.rec.OfType(notify.TypeMutationFailed))

	dependents, err := f.m.DependentsOf(b.ID)
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, "C", dependents[0].Title)
}

func TestAddAndRemoveDependency(t *testing.T) {
	f := newFixture(t)
	a := f.createCard(t, "A", "A fazer")
	b := f.createCard(t, "B", "A fazer")

	require.NoError(t, f.m.AddDependency(b.ID, types.Dependency{TargetID: a.ID}))
	f.m.Wait()
	local, _ := f.m.Card(b.ID)
	require.Len(t, local.Dependencies, 1)
	assert.Equal(t, "A", local.Dependencies[0].Title)
	stored, ok := docField(t, f.store, types.KindCard, b.ID, "dependencies").([]any)
	require.True(t, ok)
	assert.Len(t, stored, 1)

	blocked := f.m.Blocked(f.board.ID)
	require.Len(t, blocked, 1)
	assert.Equal(t, b.ID, blocked[0].Card.ID)
	ready := f.m.Ready(f.board.ID)
	require.Len(t, ready, 1)
	assert.Equal(t, a.ID, ready[0].ID)

	dependents, err := f.m.DependentsOf(a.ID)
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, "B", dependents[0].Title)

	require.NoError(t, f.m.RemoveDependency(b.ID, "A"))
	f.m.Wait()
	local, _ = f.m.Card(b.ID)
	assert.Empty(t, local.Dependencies)
	assert.Empty(t, f.m.Blocked(f.board.ID))

	err = f.m.RemoveDependency(b.ID, "A")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveCardByTitle(t *testing.T) {
	f := newFixture(t)
	a := f.createCard(t, "Write docs", "A fazer")

	got, err := f.m.ResolveCard("  write DOCS ")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	got, err = f.m.ResolveCard(a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = f.m.CreateCard(&types.Card{Title: "Write docs", ColumnID: f.cols["Em andamento"]})
	require.NoError(t, err)
	f.m.Wait()
	_, err = f.m.ResolveCard("Write docs")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	col, err := f.m.ResolveColumn(f.board.ID, "concluído")
	require.NoError(t, err)
	assert.Equal(t, f.cols["Concluído"], col.ID)
}

func TestStatusFollowsColumn(t *testing.T) {
	f := newFixture(t)
	a := f.createCard(t, "A", "Em andamento")
	st, ok := f.m.Status(a.ID)
	require.True(t, ok)
	assert.Equal(t, types.StatusInProgress, st)
}

func TestMetricsTrackRollbacks(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	f := newFixture(t, WithMeter(mp.Meter("test")))

	f.store.SetInterceptor(func(_ context.Context, call memstore.Call) error {
		if call.Op == memstore.OpInsert {
			return errors.New("disk full")
		}
		return nil
	})
	_, err := f.m.CreateCard(&types.Card{Title: "Doomed", ColumnID: f.cols["A fazer"]})
	require.NoError(t, err)
	f.m.Wait()
	assert.Len(t, f.rec.OfType(notify.TypeRolledBack), 1)
	assert.Empty(t, f.m.Pending())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), totals["kb.reconcile.rollbacks"])
	assert.Equal(t, int64(0), totals["kb.reconcile.pending"])
	assert.Equal(t, int64(1), totals["kb.reconcile.operations"])
}
