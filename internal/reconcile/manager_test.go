package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/steveyegge/kanbeads/internal/logging"
	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/remote/memstore"
	"github.com/steveyegge/kanbeads/internal/types"
)

type fixture struct {
	store *memstore.Store
	m     *Manager
	rec   *notify.Recorder
	board *types.Board
	cols  map[string]types.ID
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryMaxElapsed = 500 * time.Millisecond
	cfg.RetryInitialInterval = time.Millisecond
	return cfg
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	return newFixtureWithStore(t, memstore.New(), opts...)
}

// newFixtureWithStore seeds a board with three columns directly in the
// store (one board and three column inserts) and loads it.
func newFixtureWithStore(t *testing.T, store *memstore.Store, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	r := remote.New(store)

	board, err := r.Boards.Create(ctx, &types.Board{Title: "Sprint"})
	require.NoError(t, err)
	cols := make(map[string]types.ID)
	for i, name := range []string{"A fazer", "Em andamento", "Concluído"} {
		col, err := r.Columns.Create(ctx, &types.Column{BoardID: board.ID, Name: name, Position: i})
		require.NoError(t, err)
		cols[name] = col.ID
	}

	rec := notify.NewRecorder()
	m := New(r, append([]Option{WithNotifier(rec), WithConfig(testConfig())}, opts...)...)
	require.NoError(t, m.LoadAll(ctx))
	return &fixture{store: store, m: m, rec: rec, board: board, cols: cols}
}

// createCard creates a card and waits for it to reconcile.
func (f *fixture) createCard(t *testing.T, title, column string, deps ...types.Dependency) *types.Card {
	t.Helper()
	c, err := f.m.CreateCard(&types.Card{Title: title, ColumnID: f.cols[column], Dependencies: deps})
	require.NoError(t, err)
	f.m.Wait()
	saved, err := f.m.ResolveCard(title)
	require.NoError(t, err)
	require.False(t, saved.ID.IsTemp(), "card %s did not reconcile (was %s)", title, c.ID)
	return saved
}

func countCalls(store *memstore.Store, op memstore.Op, kind types.Kind) int {
	n := 0
	for _, c := range store.Calls() {
		if c.Op == op && c.Kind == kind {
			n++
		}
	}
	return n
}

func docField(t *testing.T, store *memstore.Store, kind types.Kind, id types.ID, field string) any {
	t.Helper()
	doc, ok := store.Get(kind, id.String())
	require.True(t, ok, "%s %s not stored", kind, id)
	var body map[string]any
	require.NoError(t, remote.Unmarshal(doc.Body, &body))
	return body[field]
}

func TestLoadAllInstallsBoard(t *testing.T) {
	f := newFixture(t)
	boards := f.m.Boards()
	require.Len(t, boards, 1)
	assert.Equal(t, "Sprint", boards[0].Title)

	cols := f.m.Columns(f.board.ID)
	require.Len(t, cols, 3)
	assert.Equal(t, "A fazer", cols[0].Name)
	assert.Equal(t, "Concluído", cols[2].Name)
}

func TestLoadOrdersByPosition(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := remote.New(store)
	board, err := r.Boards.Create(ctx, &types.Board{Title: "B"})
	require.NoError(t, err)
	col, err := r.Columns.Create(ctx, &types.Column{BoardID: board.ID, Name: "Todo"})
	require.NoError(t, err)
	for i, title := range []string{"third", "first", "second"} {
		pos := []int{2, 0, 1}[i]
		_, err := r.Cards.Create(ctx, &types.Card{Title: title, BoardID: board.ID, ColumnID: col.ID, Position: pos})
		require.NoError(t, err)
	}

	m := New(r, WithConfig(testConfig()))
	require.NoError(t, m.LoadAll(ctx))
	var titles []string
	for _, c := range m.ColumnCards(col.ID) {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"first", "second", "third"}, titles)
}

func TestSubtaskReconcilesToRemoteID(t *testing.T) {
	// One board, three columns and one card are stored before the subtask,
	// so the subtask is assigned 42.
	store := memstore.New(memstore.WithStartID(36))
	f := newFixtureWithStore(t, store)
	card := f.createCard(t, "Card A", "A fazer")
	require.Equal(t, "41", card.ID.String())

	s, err := f.m.CreateSubtask(&types.Subtask{CardID: card.ID, Title: "Escrever testes"})
	require.NoError(t, err)
	assert.True(t, s.ID.IsTemp())
	assert.True(t, strings.HasPrefix(s.ID.String(), "temp-"))

	f.m.Wait()

	subs := f.m.Subtasks(card.ID)
	require.Len(t, subs, 1)
	assert.Equal(t, "42", subs[0].ID.String())
	assert.False(t, subs[0].ID.IsTemp())
	assert.Equal(t, "Escrever testes", subs[0].Title)
	assert.False(t, subs[0].CreatedAt.IsZero())

	_, stillTemp := f.m.Subtask(s.ID)
	assert.False(t, stillTemp)

	reconciled := f.rec.OfType(notify.TypeReconciled)
	require.NotEmpty(t, reconciled)
	last := reconciled[len(reconciled)-1]
	assert.Equal(t, s.ID, last.TempID)
	assert.Equal(t, "42", last.EntityID.String())
	assert.Empty(t, f.m.Pending())
}

func TestCreateAssignsDistinctTempIDs(t *testing.T) {
	f := newFixture(t)
	seen := make(map[types.ID]bool)
	for i := range 20 {
		c, err := f.m.CreateCard(&types.Card{Title: "Card " + string(rune('a'+i)), ColumnID: f.cols["A fazer"]})
		require.NoError(t, err)
		assert.False(t, seen[c.ID], "duplicate temp id %s", c.ID)
		seen[c.ID] = true
	}
	f.m.Wait()

	cards := f.m.Cards(f.board.ID)
	require.Len(t, cards, 20)
	saved := make(map[types.ID]bool)
	for i, c := range cards {
		assert.False(t, c.ID.IsTemp())
		assert.False(t, saved[c.ID])
		saved[c.ID] = true
		assert.Equal(t, i, c.Position)
	}
	assert.Equal(t, 20, f.store.Count(types.KindCard))
}

func TestCreateFailureRollsBack(t *testing.T) {
	log := logging.NewTestLogger()
	f := newFixture(t, WithLogger(log.Logger))
	card := f.createCard(t, "Card A", "A fazer")

	f.store.SetInterceptor(func(_ context.Context, call memstore.Call) error {
		if call.Op == memstore.OpInsert && call.Kind == types.KindSubtask {
			return errors.New("quota exceeded")
		}
		return nil
	})
	s, err := f.m.CreateSubtask(&types.Subtask{CardID: card.ID, Title: "Doomed"})
	require.NoError(t, err)
	require.Len(t, f.m.Subtasks(card.ID), 1)

	f.m.Wait()

	assert.Empty(t, f.m.Subtasks(card.ID))
	failed := f.rec.OfType(notify.TypeMutationFailed)
	require.Len(t, failed, 1)
	var pe *PersistenceError
	require.ErrorAs(t, failed[0].Err, &pe)
	assert.Equal(t, "create", pe.Op)
	assert.Equal(t, s.ID, pe.ID)
	assert.NotEmpty(t, pe.CorrelationID)
	assert.ErrorIs(t, failed[0].Err, remote.ErrPersistence)
	assert.Len(t, f.rec.OfType(notify.TypeRolledBack), 1)
	log.AssertLogged(t, zapcore.ErrorLevel, "remote operation failed")
}

func TestCreateFailureWithoutRollbackKeepsLocalState(t *testing.T) {
	cfg := testConfig()
	cfg.RollbackOnFailure = false
	f := newFixture(t, WithConfig(cfg))
	card := f.createCard(t, "Card A", "A fazer")

	f.store.SetInterceptor(func(_ context.Context, call memstore.Call) error {
		if call.Op == memstore.OpInsert {
			return errors.New("quota exceeded")
		}
		return nil
	})
	_, err := f.m.CreateSubtask(&types.Subtask{CardID: card.ID, Title: "Kept"})
	require.NoError(t, err)
	f.m.Wait()

	subs := f.m.Subtasks(card.ID)
	require.Len(t, subs, 1)
	assert.True(t, subs[0].ID.IsTemp())
	assert.Len(t, f.rec.OfType(notify.TypeMutationFailed), 1)
	assert.Empty(t, f.rec.OfType(notify.TypeRolledBack))
}

func TestTransientFailuresAreRetried(t *testing.T) {
	f := newFixture(t)
	var attempts atomic.Int32
	f.store.SetInterceptor(func(_ context.Context, call memstore.Call) error {
		if call.Op == memstore.OpInsert && attempts.Add(1) <= 2 {
			return remote.Transient(errors.New("connection reset"))
		}
		return nil
	})
	card := f.createCard(t, "Flaky", "A fazer")
	assert.False(t, card.ID.IsTemp())
	assert.Equal(t, int32(3), attempts.Load())
	assert.Empty(t, f.rec.OfType(notify.TypeMutationFailed))
}

func TestDeleteBeforeCreateResolves(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.store.SetInterceptor(func(_ context.Context, call memstore.Call) error {
		if call.Op == memstore.OpInsert && call.Kind == types.KindCard {
			<-gate
		}
		return nil
	})

	c, err := f.m.CreateCard(&types.Card{Title: "Ephemeral", ColumnID: f.cols["A fazer"]})
	require.NoError(t, err)
	require.NoError(t, f.m.DeleteCard(c.ID))
	assert.Empty(t, f.m.Cards(f.board.ID))

	close(gate)
	f.m.Wait()

	assert.Empty(t, f.m.Cards(f.board.ID), "deleted card must not come back")
	assert.Equal(t, 0, f.store.Count(types.KindCard), "orphan must be deleted remotely")
	assert.Equal(t, 1, countCalls(f.store, memstore.OpRemove, types.KindCard))

	discarded := f.rec.OfType(notify.TypeReconcileDiscarded)
	require.Len(t, discarded, 1)
	var rerr *ReconciliationError
	require.ErrorAs(t, discarded[0].Err, &rerr)
	assert.Equal(t, c.ID, rerr.TempID)
}

func TestDeleteTempEntityMakesNoRemoteCall(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.store.SetInterceptor(func(_ context.Context, call memstore.Call) error {
		if call.Op == memstore.OpInsert && call.Kind == types.KindCard {
			<-gate
		}
		return nil
	})
	c, err := f.m.CreateCard(&types.Card{Title: "Parent", ColumnID: f.cols["A fazer"]})
	require.NoError(t, err)
	_, err = f.m.CreateSubtask(&types.Subtask{CardID: c.ID, Title: "child"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.m.Deferred())

	require.NoError(t, f.m.DeleteCard(c.ID))
	assert.Equal(t, 0, f.m.Deferred())

	close(gate)
	f.m.Wait()
	assert.Equal(t, 0, countCalls(f.store, memstore.OpInsert, types.KindSubtask))
	assert.Equal(t, 0, f.store.Count(types.KindSubtask))
}

func TestSubtaskDeferredUntilCardReconciles(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.store.SetInterceptor(func(_ context.Context, call memstore.Call) error {
		if call.Op == memstore.OpInsert && call.Kind == types.KindCard {
			<-gate
		}
		return nil
	})

	card, err := f.m.CreateCard(&types.Card{Title: "New card", ColumnID: f.cols["A fazer"]})
	require.NoError(t, err)
	sub, err := f.m.CreateSubtask(&types.Subtask{CardID: card.ID, Title: "first step"})
	require.NoError(t, err)
	assert.Equal(t, card.ID, sub.CardID)
	assert.Equal(t, 0, countCalls(f.store, memstore.OpInsert, types.KindSubtask))
	assert.Equal(t, 1, f.m.Deferred())

	close(gate)
	f.m.Wait()

	saved, err := f.m.ResolveCard("New card")
	require.NoError(t, err)
	require.False(t, saved.ID.IsTemp())
	subs := f.m.Subtasks(saved.ID)
	require.Len(t, subs, 1)
	assert.False(t, subs[0].ID.IsTemp())
	assert.Equal(t, saved.ID, subs[0].CardID)

	doc, ok := f.store.Get(types.KindSubtask, subs[0].ID.String())
	require.True(t, ok)
	assert.Equal(t, saved.ID.String(), doc.ParentID)
}

func TestUpdateAppliesLocallyAndRemotely(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, "Card A", "A fazer")

	require.NoError(t, f.m.UpdateCard(card.ID, map[string]any{
		"description": "details",
		"priority":    types.PriorityHigh,
	}))
	local, _ := f.m.Card(card.ID)
	assert.Equal(t, "details", local.Description)
	assert.Equal(t, types.PriorityHigh, local.Priority)

	f.m.Wait()
	assert.Equal(t, "details", docField(t, f.store, types.KindCard, card.ID, "description"))
	assert.Equal(t, "high", docField(t, f.store, types.KindCard, card.ID, "priority"))
	assert.NotEmpty(t, f.rec.OfType(notify.TypeMutationSucceeded))
}

func TestZeroConfigUsesDefaultTimeout(t *testing.T) {
	f := newFixture(t, WithConfig(Config{}))
	assert.Equal(t, DefaultConfig().Timeout, f.m.cfg.Timeout)
	assert.Equal(t, 1, f.m.cfg.LoadConcurrency)

	card := f.createCard(t, "Card A", "A fazer")
	assert.False(t, card.ID.IsTemp())
	assert.Empty(t, f.rec.OfType(notify.TypeMutationFailed))
	assert.Equal(t, "Card A", docField(t, f.store, types.KindCard, card.ID, "title"))
}

func TestUpdateRejectsStructuralAndInvalidFields(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, "Card A", "A fazer")

	err := f.m.UpdateCard(card.ID, map[string]any{"columnId": f.cols["Concluído"].String()})
	assert.ErrorIs(t, err, ErrImmutableField)
	err = f.m.UpdateCard(card.ID, map[string]any{"createdAt": time.Now()})
	assert.ErrorIs(t, err, ErrImmutableField)

	err = f.m.UpdateCard(card.ID, map[string]any{"title": "   "})
	assert.Error(t, err)
	local, _ := f.m.Card(card.ID)
	assert.Equal(t, "Card A", local.Title)

	assert.ErrorIs(t, f.m.UpdateCard(types.RemoteID("999"), map[string]any{"title": "x"}), ErrNotFound)
}

func TestUpdateFailureRestoresPriorValues(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, "Original", "A fazer")

	f.store.SetInterceptor(func(_ context.Context, call memstore.Call) error {
		if call.Op == memstore.OpPatch {
			return errors.New("rejected")
		}
		return nil
	})
	require.NoError(t, f.m.UpdateCard(card.ID, map[string]any{"title": "Renamed"}))
	local, _ := f.m.Card(card.ID)
	assert.Equal(t, "Renamed", local.Title)

	f.m.Wait()
	local, _ = f.m.Card(card.ID)
	assert.Equal(t, "Original", local.Title)
	assert.Len(t, f.rec.OfType(notify.TypeRolledBack), 1)
}

func TestUpdateOfTempEntityIsDeferred(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.store.SetInterceptor(func(_ context.Context, call memstore.Call) error {
		if call.Op == memstore.OpInsert && call.Kind == types.KindCard {
			<-gate
		}
		return nil
	})
	c, err := f.m.CreateCard(&types.Card{Title: "Draft", ColumnID: f.cols["A fazer"]})
	require.NoError(t, err)
	require.NoError(t, f.m.UpdateCard(c.ID, map[string]any{"description": "filled in later"}))
	assert.Equal(t, 0, countCalls(f.store, memstore.OpPatch, types.KindCard))

	close(gate)
	f.m.Wait()

	saved, err := f.m.ResolveCard("Draft")
	require.NoError(t, err)
	assert.Equal(t, "filled in later", docField(t, f.store, types.KindCard, saved.ID, "description"))
}

func TestDeleteCascadesRemotely(t *testing.T) {
	f := newFixture(t)
	card := f.createCard(t, "Parent", "A fazer")
	for _, title := range []string{"one", "two"} {
		_, err := f.m.CreateSubtask(&types.Subtask{CardID: card.ID, Title: title})
		require.NoError(t, err)
	}
	f.m.Wait()
	require.Equal(t, 2, f.store.Count(types.KindSubtask))

	require.NoError(t, f.m.DeleteCard(card.ID))
	f.m.Wait()

	assert.Equal(t, 0, f.store.Count(types.KindCard))
	assert.Equal(t, 0, f.store.Count(types.KindSubtask))
	_, ok := f.m.Card(card.ID)
	assert.False(t, ok)
}

func TestDeleteFailureRestoresEntity(t *testing.T) {
	f := newFixture(t)
	f.createCard(t, "First", "A fazer")
	card := f.createCard(t, "Second", "A fazer")
	f.createCard(t, "Third", "A fazer")

	f.store.SetInterceptor(func(_ context.Context, call memstore.Call) error {
		if call.Op == memstore.OpRemove {
			return errors.New("locked")
		}
		return nil
	})
	require.NoError(t, f.m.DeleteCard(card.ID))
	assert.Len(t, f.m.Cards(f.board.ID), 2)

	f.m.Wait()
	cards := f.m.ColumnCards(f.cols["A fazer"])
	require.Len(t, cards, 3)
	assert.Equal(t, "Second", cards[1].Title, "restored at its former index")
	assert.Len(t, f.rec.OfType(notify.TypeRolledBack), 1)
}

func TestDeleteUnknownEntity(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.m.DeleteSubtask(types.RemoteID("404")), ErrNotFound)
}

func TestCloseWaitsAndClosesStore(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.CreateCard(&types.Card{Title: "Last", ColumnID: f.cols["A fazer"]})
	require.NoError(t, err)
	require.NoError(t, f.m.Close())
	assert.Equal(t, 1, f.store.Count(types.KindCard))
	_, err = f.store.List(context.Background(), types.KindCard, f.board.ID.String())
	assert.Error(t, err)
}
