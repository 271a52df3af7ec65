package workspace

import (
	"fmt"

	"github.com/steveyegge/kanbeads/internal/types"
)

// Rekey replaces a temporary ID with the authoritative one. Ownership
// indexes follow the entity, owned entities get the new parent ID, and
// dependency targets pointing at oldID are rewritten. It returns the cards
// whose dependency lists changed.
func (w *Workspace) Rekey(kind types.Kind, oldID, newID types.ID) ([]*types.Card, error) {
	if w.Contains(newID) {
		return nil, fmt.Errorf("rekey %s %s: id %s already in use", kind, oldID, newID)
	}
	switch kind {
	case types.KindBoard:
		return nil, w.rekeyBoard(oldID, newID)
	case types.KindColumn:
		return nil, w.rekeyColumn(oldID, newID)
	case types.KindCard:
		return w.rekeyCard(oldID, newID)
	case types.KindSubtask:
		return nil, w.rekeySubtask(oldID, newID)
	}
	return nil, fmt.Errorf("rekey: unknown kind %q", kind)
}

func (w *Workspace) rekeyBoard(oldID, newID types.ID) error {
	if !w.boards.Rekey(oldID, newID) {
		return fmt.Errorf("rekey board: %s not found", oldID)
	}
	cols := w.columns[oldID]
	delete(w.columns, oldID)
	w.columns[newID] = cols
	for _, col := range cols.Live() {
		col.BoardID = newID
		w.columnBoard[col.ID] = newID
		for _, card := range w.cards[col.ID].Live() {
			card.BoardID = newID
		}
	}
	return nil
}

func (w *Workspace) rekeyColumn(oldID, newID types.ID) error {
	boardID, ok := w.columnBoard[oldID]
	if !ok || !w.columns[boardID].Rekey(oldID, newID) {
		return fmt.Errorf("rekey column: %s not found", oldID)
	}
	delete(w.columnBoard, oldID)
	w.columnBoard[newID] = boardID
	cards := w.cards[oldID]
	delete(w.cards, oldID)
	w.cards[newID] = cards
	for _, card := range cards.Live() {
		card.ColumnID = newID
		w.cardColumn[card.ID] = newID
	}
	return nil
}

func (w *Workspace) rekeyCard(oldID, newID types.ID) ([]*types.Card, error) {
	colID, ok := w.cardColumn[oldID]
	if !ok || !w.cards[colID].Rekey(oldID, newID) {
		return nil, fmt.Errorf("rekey card: %s not found", oldID)
	}
	delete(w.cardColumn, oldID)
	w.cardColumn[newID] = colID

	subs := w.subtasks[oldID]
	delete(w.subtasks, oldID)
	w.subtasks[newID] = subs
	for _, s := range subs.Live() {
		s.CardID = newID
		w.subtaskCard[s.ID] = newID
	}

	var rewritten []*types.Card
	for _, cards := range w.cards {
		for _, c := range cards.Live() {
			touched := false
			for i := range c.Dependencies {
				if c.Dependencies[i].TargetID == oldID {
					c.Dependencies[i].TargetID = newID
					touched = true
				}
			}
			if touched {
				rewritten = append(rewritten, c)
			}
		}
	}
	return rewritten, nil
}

func (w *Workspace) rekeySubtask(oldID, newID types.ID) error {
	cardID, ok := w.subtaskCard[oldID]
	if !ok || !w.subtasks[cardID].Rekey(oldID, newID) {
		return fmt.Errorf("rekey subtask: %s not found", oldID)
	}
	delete(w.subtaskCard, oldID)
	w.subtaskCard[newID] = cardID
	return nil
}
