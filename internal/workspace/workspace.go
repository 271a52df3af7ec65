// Package workspace holds the local working copy of boards, columns, cards
// and subtasks.
//
// Entities live in an arena keyed by ID: one ordered collection per parent
// (boards; columns per board; cards per column; subtasks per card) plus
// reverse indexes, so lookups by ID are O(1) and ownership is explicit. A
// Workspace is not safe for concurrent use; the reconcile manager guards it.
package workspace

import (
	"fmt"

	"github.com/steveyegge/kanbeads/internal/types"
)

type (
	boardSet   = Collection[types.Board, *types.Board]
	columnSet  = Collection[types.Column, *types.Column]
	cardSet    = Collection[types.Card, *types.Card]
	subtaskSet = Collection[types.Subtask, *types.Subtask]
)

// Workspace is the arena of live entities.
type Workspace struct {
	boards   *boardSet
	columns  map[types.ID]*columnSet  // board → columns
	cards    map[types.ID]*cardSet    // column → cards
	subtasks map[types.ID]*subtaskSet // card → subtasks

	columnBoard map[types.ID]types.ID
	cardColumn  map[types.ID]types.ID
	subtaskCard map[types.ID]types.ID
}

// New returns an empty workspace.
func New() *Workspace {
	return &Workspace{
		boards:      NewCollection[types.Board, *types.Board](),
		columns:     make(map[types.ID]*columnSet),
		cards:       make(map[types.ID]*cardSet),
		subtasks:    make(map[types.ID]*subtaskSet),
		columnBoard: make(map[types.ID]types.ID),
		cardColumn:  make(map[types.ID]types.ID),
		subtaskCard: make(map[types.ID]types.ID),
	}
}

// Contains reports whether any entity carries id.
func (w *Workspace) Contains(id types.ID) bool {
	if w.boards.Has(id) {
		return true
	}
	_, col := w.columnBoard[id]
	_, card := w.cardColumn[id]
	_, sub := w.subtaskCard[id]
	return col || card || sub
}

// Boards returns the live boards in order.
func (w *Workspace) Boards() []*types.Board { return w.boards.Live() }

// BoardSet exposes the ordered board collection.
func (w *Workspace) BoardSet() *Collection[types.Board, *types.Board] { return w.boards }

// Board returns the live board with id.
func (w *Workspace) Board(id types.ID) (*types.Board, bool) { return w.boards.Get(id) }

// AddBoard inserts b at index (-1 appends).
func (w *Workspace) AddBoard(b *types.Board, index int) error {
	if w.Contains(b.ID) {
		return fmt.Errorf("add board %q: duplicate id %s", b.Title, b.ID)
	}
	if err := w.boards.Insert(b, index); err != nil {
		return err
	}
	if _, ok := w.columns[b.ID]; !ok {
		w.columns[b.ID] = NewCollection[types.Column, *types.Column]()
	}
	return nil
}

// BoardTree is a removed board with everything it owned.
type BoardTree struct {
	Board   *types.Board
	Index   int
	Columns []ColumnTree
}

// ColumnTree is a removed column with its cards.
type ColumnTree struct {
	Column *types.Column
	Index  int
	Cards  []CardTree
}

// CardTree is a removed card with its subtasks.
type CardTree struct {
	Card     *types.Card
	Index    int
	Subtasks []*types.Subtask
}

// RemoveBoard deletes a board and cascades to its columns, cards and
// subtasks.
func (w *Workspace) RemoveBoard(id types.ID) (*BoardTree, bool) {
	b, idx, ok := w.boards.Remove(id)
	if !ok {
		return nil, false
	}
	tree := &BoardTree{Board: b, Index: idx}
	if cols, ok := w.columns[id]; ok {
		for i, colID := range cols.IDs() {
			if ct, ok := w.RemoveColumn(colID); ok {
				ct.Index = i
				tree.Columns = append(tree.Columns, *ct)
			}
		}
	}
	delete(w.columns, id)
	return tree, true
}

// RestoreBoard reinserts a removed board tree.
func (w *Workspace) RestoreBoard(tree *BoardTree) error {
	if err := w.AddBoard(tree.Board, tree.Index); err != nil {
		return err
	}
	for _, ct := range tree.Columns {
		if err := w.RestoreColumn(&ct); err != nil {
			return err
		}
	}
	return nil
}

// Columns returns the live columns of a board in order.
func (w *Workspace) Columns(boardID types.ID) []*types.Column {
	if cols, ok := w.columns[boardID]; ok {
		return cols.Live()
	}
	return nil
}

// ColumnSet exposes a board's ordered column collection.
func (w *Workspace) ColumnSet(boardID types.ID) (*Collection[types.Column, *types.Column], bool) {
	cols, ok := w.columns[boardID]
	return cols, ok
}

// Column returns the live column with id.
func (w *Workspace) Column(id types.ID) (*types.Column, bool) {
	boardID, ok := w.columnBoard[id]
	if !ok {
		return nil, false
	}
	return w.columns[boardID].Get(id)
}

// AddColumn inserts c into its board at index (-1 appends).
func (w *Workspace) AddColumn(c *types.Column, index int) error {
	cols, ok := w.columns[c.BoardID]
	if !ok {
		return fmt.Errorf("add column %q: unknown board %s", c.Name, c.BoardID)
	}
	if w.Contains(c.ID) {
		return fmt.Errorf("add column %q: duplicate id %s", c.Name, c.ID)
	}
	if err := cols.Insert(c, index); err != nil {
		return err
	}
	w.columnBoard[c.ID] = c.BoardID
	if _, ok := w.cards[c.ID]; !ok {
		w.cards[c.ID] = NewCollection[types.Card, *types.Card]()
	}
	return nil
}

// RemoveColumn deletes a column with its cards and their subtasks.
func (w *Workspace) RemoveColumn(id types.ID) (*ColumnTree, bool) {
	boardID, ok := w.columnBoard[id]
	if !ok {
		return nil, false
	}
	c, idx, _ := w.columns[boardID].Remove(id)
	tree := &ColumnTree{Column: c, Index: idx}
	if cards, ok := w.cards[id]; ok {
		for i, cardID := range cards.IDs() {
			if ct, ok := w.RemoveCard(cardID); ok {
				ct.Index = i
				tree.Cards = append(tree.Cards, *ct)
			}
		}
	}
	delete(w.cards, id)
	delete(w.columnBoard, id)
	return tree, true
}

// RestoreColumn reinserts a removed column tree.
func (w *Workspace) RestoreColumn(tree *ColumnTree) error {
	if err := w.AddColumn(tree.Column, tree.Index); err != nil {
		return err
	}
	for _, ct := range tree.Cards {
		if err := w.RestoreCard(&ct); err != nil {
			return err
		}
	}
	return nil
}

// Cards returns the live cards of a board, column by column.
func (w *Workspace) Cards(boardID types.ID) []*types.Card {
	var out []*types.Card
	for _, col := range w.Columns(boardID) {
		out = append(out, w.cards[col.ID].Live()...)
	}
	return out
}

// ColumnCards returns the live cards of one column in order.
func (w *Workspace) ColumnCards(columnID types.ID) []*types.Card {
	if cards, ok := w.cards[columnID]; ok {
		return cards.Live()
	}
	return nil
}

// CardSet exposes a column's ordered card collection.
func (w *Workspace) CardSet(columnID types.ID) (*Collection[types.Card, *types.Card], bool) {
	cards, ok := w.cards[columnID]
	return cards, ok
}

// Card returns the live card with id.
func (w *Workspace) Card(id types.ID) (*types.Card, bool) {
	colID, ok := w.cardColumn[id]
	if !ok {
		return nil, false
	}
	return w.cards[colID].Get(id)
}

// AddCard inserts c into its column at index (-1 appends). The card's
// BoardID is set from the column.
func (w *Workspace) AddCard(c *types.Card, index int) error {
	col, ok := w.Column(c.ColumnID)
	if !ok {
		return fmt.Errorf("add card %q: unknown column %s", c.Title, c.ColumnID)
	}
	if w.Contains(c.ID) {
		return fmt.Errorf("add card %q: duplicate id %s", c.Title, c.ID)
	}
	c.BoardID = col.BoardID
	if err := w.cards[c.ColumnID].Insert(c, index); err != nil {
		return err
	}
	w.cardColumn[c.ID] = c.ColumnID
	if _, ok := w.subtasks[c.ID]; !ok {
		w.subtasks[c.ID] = NewCollection[types.Subtask, *types.Subtask]()
	}
	return nil
}

// RemoveCard deletes a card and its subtasks.
func (w *Workspace) RemoveCard(id types.ID) (*CardTree, bool) {
	colID, ok := w.cardColumn[id]
	if !ok {
		return nil, false
	}
	c, idx, _ := w.cards[colID].Remove(id)
	tree := &CardTree{Card: c, Index: idx}
	if subs, ok := w.subtasks[id]; ok {
		tree.Subtasks = subs.Live()
		for _, s := range tree.Subtasks {
			delete(w.subtaskCard, s.ID)
		}
	}
	delete(w.subtasks, id)
	delete(w.cardColumn, id)
	return tree, true
}

// RestoreCard reinserts a removed card with its subtasks.
func (w *Workspace) RestoreCard(tree *CardTree) error {
	if err := w.AddCard(tree.Card, tree.Index); err != nil {
		return err
	}
	for _, s := range tree.Subtasks {
		if err := w.AddSubtask(s, -1); err != nil {
			return err
		}
	}
	return nil
}

// MoveCard relocates a card to index in targetColumnID and renumbers the
// affected columns. It returns the IDs whose column or position changed.
func (w *Workspace) MoveCard(id, targetColumnID types.ID, index int) ([]types.ID, error) {
	srcColID, ok := w.cardColumn[id]
	if !ok {
		return nil, fmt.Errorf("move card: unknown card %s", id)
	}
	if _, ok := w.cards[targetColumnID]; !ok {
		return nil, fmt.Errorf("move card: unknown column %s", targetColumnID)
	}
	if w.columnBoard[srcColID] != w.columnBoard[targetColumnID] {
		return nil, fmt.Errorf("move card: column %s is on another board", targetColumnID)
	}

	changed := make(map[types.ID]bool)
	if srcColID == targetColumnID {
		w.cards[srcColID].Move(id, index)
	} else {
		c, _, _ := w.cards[srcColID].Remove(id)
		c.ColumnID = targetColumnID
		_ = w.cards[targetColumnID].Insert(c, index)
		w.cardColumn[id] = targetColumnID
		changed[id] = true
		for _, moved := range w.cards[srcColID].Renumber() {
			changed[moved] = true
		}
	}
	for _, moved := range w.cards[targetColumnID].Renumber() {
		changed[moved] = true
	}

	// Report in board order so persistence is deterministic.
	var out []types.ID
	for _, colID := range []types.ID{srcColID, targetColumnID} {
		for _, cid := range w.cards[colID].IDs() {
			if changed[cid] {
				out = append(out, cid)
				delete(changed, cid)
			}
		}
	}
	return out, nil
}

// Placement records where a card sat.
type Placement struct {
	ColumnID types.ID
	Position int
}

// ColumnOrder captures the card order of the given columns.
func (w *Workspace) ColumnOrder(columnIDs ...types.ID) map[types.ID][]types.ID {
	out := make(map[types.ID][]types.ID, len(columnIDs))
	for _, colID := range columnIDs {
		if cards, ok := w.cards[colID]; ok {
			out[colID] = cards.IDs()
		}
	}
	return out
}

// RestoreColumnOrder puts cards back into the columns and order captured by
// ColumnOrder. Cards created since keep their place after the restored ones.
// It returns the new placement of every card whose column or position
// changed.
func (w *Workspace) RestoreColumnOrder(order map[types.ID][]types.ID) map[types.ID]Placement {
	before := make(map[types.ID]Placement)
	touched := make(map[types.ID]bool)
	for colID, ids := range order {
		touched[colID] = true
		for _, id := range ids {
			if cur, ok := w.cardColumn[id]; ok {
				c, _ := w.cards[cur].Get(id)
				before[id] = Placement{ColumnID: cur, Position: c.Position}
				touched[cur] = true
			}
		}
	}
	for colID, ids := range order {
		dst, ok := w.cards[colID]
		if !ok {
			continue
		}
		for _, id := range ids {
			cur, ok := w.cardColumn[id]
			if !ok || cur == colID {
				continue
			}
			c, _, _ := w.cards[cur].Remove(id)
			c.ColumnID = colID
			_ = dst.Append(c)
			w.cardColumn[id] = colID
		}
		dst.RestoreOrder(ids)
	}
	changed := make(map[types.ID]Placement)
	for colID := range touched {
		if cards, ok := w.cards[colID]; ok {
			cards.Renumber()
			for _, c := range cards.Live() {
				if b, ok := before[c.ID]; ok && (b.ColumnID != c.ColumnID || b.Position != c.Position) {
					changed[c.ID] = Placement{ColumnID: c.ColumnID, Position: c.Position}
				}
			}
		}
	}
	return changed
}

// Subtasks returns the live subtasks of a card in order.
func (w *Workspace) Subtasks(cardID types.ID) []*types.Subtask {
	if subs, ok := w.subtasks[cardID]; ok {
		return subs.Live()
	}
	return nil
}

// SubtaskSet exposes a card's ordered subtask collection.
func (w *Workspace) SubtaskSet(cardID types.ID) (*Collection[types.Subtask, *types.Subtask], bool) {
	subs, ok := w.subtasks[cardID]
	return subs, ok
}

// Subtask returns the live subtask with id.
func (w *Workspace) Subtask(id types.ID) (*types.Subtask, bool) {
	cardID, ok := w.subtaskCard[id]
	if !ok {
		return nil, false
	}
	return w.subtasks[cardID].Get(id)
}

// AddSubtask inserts s into its card at index (-1 appends).
func (w *Workspace) AddSubtask(s *types.Subtask, index int) error {
	subs, ok := w.subtasks[s.CardID]
	if !ok {
		return fmt.Errorf("add subtask %q: unknown card %s", s.Title, s.CardID)
	}
	if w.Contains(s.ID) {
		return fmt.Errorf("add subtask %q: duplicate id %s", s.Title, s.ID)
	}
	if err := subs.Insert(s, index); err != nil {
		return err
	}
	w.subtaskCard[s.ID] = s.CardID
	return nil
}

// RemoveSubtask deletes a subtask and returns it with its former index.
func (w *Workspace) RemoveSubtask(id types.ID) (*types.Subtask, int, bool) {
	cardID, ok := w.subtaskCard[id]
	if !ok {
		return nil, -1, false
	}
	s, idx, _ := w.subtasks[cardID].Remove(id)
	delete(w.subtaskCard, id)
	return s, idx, true
}
