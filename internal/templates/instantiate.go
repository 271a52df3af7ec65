package templates

import (
	"fmt"
	"time"

	"github.com/steveyegge/kanbeads/internal/timeparsing"
	"github.com/steveyegge/kanbeads/internal/types"
)

// Builder creates entities. *reconcile.Manager satisfies it; entities come
// back with temporary IDs that later calls may reference.
type Builder interface {
	CreateBoard(*types.Board) (*types.Board, error)
	CreateColumn(*types.Column) (*types.Column, error)
	CreateCard(*types.Card) (*types.Card, error)
	CreateSubtask(*types.Subtask) (*types.Subtask, error)
}

// Instantiate creates a board titled title from t. Cards without a column
// go to the first one. Relative due dates resolve against now.
func (t *Template) Instantiate(b Builder, title string, now time.Time) (*types.Board, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	board, err := b.CreateBoard(&types.Board{Title: title})
	if err != nil {
		return nil, fmt.Errorf("create board %q: %w", title, err)
	}

	cols := make(map[string]types.ID, len(t.Columns))
	var first types.ID
	for i, c := range t.Columns {
		col, err := b.CreateColumn(&types.Column{BoardID: board.ID, Name: c.Name})
		if err != nil {
			return board, fmt.Errorf("create column %q: %w", c.Name, err)
		}
		cols[c.Name] = col.ID
		if i == 0 {
			first = col.ID
		}
	}

	cards := make(map[string]*types.Card, len(t.Cards))
	for _, tc := range t.Cards {
		card := &types.Card{
			Title:       tc.Title,
			Description: tc.Description,
			ColumnID:    first,
		}
		if tc.Column != "" {
			card.ColumnID = cols[tc.Column]
		}
		if tc.Priority != "" {
			// Validate already accepted it.
			card.Priority, _ = types.ParsePriority(tc.Priority)
		}
		if tc.Due != "" {
			due, err := timeparsing.ParseDue(tc.Due, now)
			if err != nil {
				return board, fmt.Errorf("card %q: due: %w", tc.Title, err)
			}
			card.DueDate = due
		}
		for _, dep := range tc.DependsOn {
			card.Dependencies = append(card.Dependencies, types.DependsOn(cards[dep]))
		}
		created, err := b.CreateCard(card)
		if err != nil {
			return board, fmt.Errorf("create card %q: %w", tc.Title, err)
		}
		cards[tc.Title] = created

		for _, st := range tc.Subtasks {
			if _, err := b.CreateSubtask(&types.Subtask{CardID: created.ID, Title: st}); err != nil {
				return board, fmt.Errorf("card %q: create subtask %q: %w", tc.Title, st, err)
			}
		}
	}
	return board, nil
}
