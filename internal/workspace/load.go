package workspace

import (
	"cmp"
	"slices"

	"github.com/steveyegge/kanbeads/internal/types"
)

// BoardContents is a board's authoritative state as listed by the remote
// store.
type BoardContents struct {
	Columns  []*types.Column
	Cards    []*types.Card
	Subtasks map[types.ID][]*types.Subtask // by card
}

// ReplaceBoards installs the authoritative board list. Boards missing from
// the list are dropped with everything they own; surviving boards keep
// their columns. Boards still carrying a temporary ID are kept.
func (w *Workspace) ReplaceBoards(boards []*types.Board) {
	incoming := make(map[types.ID]*types.Board, len(boards))
	for _, b := range boards {
		incoming[b.ID] = b
	}
	for _, b := range w.boards.Live() {
		if b.ID.IsTemp() {
			continue
		}
		if _, ok := incoming[b.ID]; !ok {
			w.RemoveBoard(b.ID)
		}
	}
	for _, b := range boards {
		if live, ok := w.boards.Get(b.ID); ok {
			*live = *b
			continue
		}
		_ = w.AddBoard(b, -1)
	}
	sortByPositionTempLast(w.boards)
}

// ReplaceBoardContents swaps in a board's authoritative columns, cards and
// subtasks. Entities with temporary IDs survive the swap so that in-flight
// creates still find them. It returns loaded cards whose column is unknown,
// which are not installed.
func (w *Workspace) ReplaceBoardContents(boardID types.ID, in BoardContents) []*types.Card {
	var tempColumns []*ColumnTree
	var tempCards []*CardTree
	var tempSubtasks []*types.Subtask

	for _, col := range w.Columns(boardID) {
		if col.ID.IsTemp() {
			if ct, ok := w.RemoveColumn(col.ID); ok {
				tempColumns = append(tempColumns, ct)
			}
			continue
		}
		for _, card := range w.ColumnCards(col.ID) {
			if card.ID.IsTemp() {
				if ct, ok := w.RemoveCard(card.ID); ok {
					tempCards = append(tempCards, ct)
				}
				continue
			}
			for _, s := range w.Subtasks(card.ID) {
				if s.ID.IsTemp() {
					tempSubtasks = append(tempSubtasks, s)
				}
			}
		}
	}
	for _, col := range w.Columns(boardID) {
		w.RemoveColumn(col.ID)
	}
	if _, ok := w.columns[boardID]; !ok {
		w.columns[boardID] = NewCollection[types.Column, *types.Column]()
	}

	columns := slices.Clone(in.Columns)
	slices.SortStableFunc(columns, func(a, b *types.Column) int { return cmp.Compare(a.Position, b.Position) })
	for _, col := range columns {
		col.BoardID = boardID
		_ = w.AddColumn(col, -1)
	}

	var skipped []*types.Card
	cards := slices.Clone(in.Cards)
	slices.SortStableFunc(cards, func(a, b *types.Card) int { return cmp.Compare(a.Position, b.Position) })
	for _, card := range cards {
		if err := w.AddCard(card, -1); err != nil {
			skipped = append(skipped, card)
			continue
		}
		subs := slices.Clone(in.Subtasks[card.ID])
		slices.SortStableFunc(subs, func(a, b *types.Subtask) int { return cmp.Compare(a.Position, b.Position) })
		for _, s := range subs {
			s.CardID = card.ID
			_ = w.AddSubtask(s, -1)
		}
	}

	for _, ct := range tempColumns {
		ct.Index = -1
		_ = w.RestoreColumn(ct)
	}
	for _, ct := range tempCards {
		ct.Index = -1
		if err := w.RestoreCard(ct); err != nil {
			skipped = append(skipped, ct.Card)
		}
	}
	for _, s := range tempSubtasks {
		_ = w.AddSubtask(s, -1)
	}
	return skipped
}

func sortByPositionTempLast[T any, P types.Record[T]](c *Collection[T, P]) {
	var fixed, temp []types.ID
	for _, p := range c.Live() {
		if p.EntityID().IsTemp() {
			temp = append(temp, p.EntityID())
		} else {
			fixed = append(fixed, p.EntityID())
		}
	}
	live := make(map[types.ID]P, len(fixed))
	for _, p := range c.Live() {
		live[p.EntityID()] = p
	}
	slices.SortStableFunc(fixed, func(a, b types.ID) int {
		return cmp.Compare(live[a].EntityPosition(), live[b].EntityPosition())
	})
	c.RestoreOrder(append(fixed, temp...))
}
