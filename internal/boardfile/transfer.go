package boardfile

import (
	"fmt"
	"time"

	"github.com/steveyegge/kanbeads/internal/types"
)

// Source reads boards for export. *reconcile.Manager satisfies it.
type Source interface {
	Boards() []*types.Board
	Columns(boardID types.ID) []*types.Column
	ColumnCards(columnID types.ID) []*types.Card
	Subtasks(cardID types.ID) []*types.Subtask
}

// Target creates imported entities. *reconcile.Manager satisfies it.
type Target interface {
	CreateBoard(*types.Board) (*types.Board, error)
	CreateColumn(*types.Column) (*types.Column, error)
	CreateCard(*types.Card) (*types.Card, error)
	CreateSubtask(*types.Subtask) (*types.Subtask, error)
	AddDependency(cardID types.ID, dep types.Dependency) error
}

// Export snapshots the given boards, or every board when ids is empty.
// Boards still unsaved are exported with their temporary IDs.
func Export(src Source, ids []types.ID, now time.Time) *Snapshot {
	want := make(map[types.ID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s := &Snapshot{Version: Version, ExportedAt: now.UTC()}
	for _, b := range src.Boards() {
		if len(want) > 0 && !want[b.ID] {
			continue
		}
		board := Board{Board: *b}
		for _, col := range src.Columns(b.ID) {
			column := Column{Column: *col}
			for _, card := range src.ColumnCards(col.ID) {
				c := Card{Card: *card}
				for _, st := range src.Subtasks(card.ID) {
					c.Subtasks = append(c.Subtasks, *st)
				}
				column.Cards = append(column.Cards, c)
			}
			board.Columns = append(board.Columns, column)
		}
		s.Boards = append(s.Boards, board)
	}
	return s
}

// ImportResult reports what Import created.
type ImportResult struct {
	Boards   []*types.Board
	Warnings []string
}

// Import creates every board of s as new entities. IDs in the file are
// only used to connect dependencies; a dependency on a card outside the
// snapshot keeps its title and loses its ID. Dependencies that would form
// a cycle are skipped with a warning.
func Import(dst Target, s *Snapshot) (*ImportResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	res := &ImportResult{}
	for _, b := range s.Boards {
		board, err := importBoard(dst, b, res)
		if board != nil {
			res.Boards = append(res.Boards, board)
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

type pendingDeps struct {
	cardID types.ID
	title  string
	deps   []types.Dependency
}

func importBoard(dst Target, b Board, res *ImportResult) (*types.Board, error) {
	board, err := dst.CreateBoard(&types.Board{Title: b.Title})
	if err != nil {
		return nil, fmt.Errorf("import board %q: %w", b.Title, err)
	}

	newIDs := make(map[string]types.ID)
	var pending []pendingDeps
	for _, c := range b.Columns {
		col, err := dst.CreateColumn(&types.Column{BoardID: board.ID, Name: c.Name})
		if err != nil {
			return board, fmt.Errorf("import column %q: %w", c.Name, err)
		}
		for _, card := range c.Cards {
			in := card.Card
			in.ID = types.ID{}
			in.BoardID = types.ID{}
			in.ColumnID = col.ID
			in.Dependencies = nil
			created, err := dst.CreateCard(&in)
			if err != nil {
				return board, fmt.Errorf("import card %q: %w", card.Title, err)
			}
			if !card.ID.IsZero() {
				newIDs[card.ID.String()] = created.ID
			}
			if len(card.Dependencies) > 0 {
				pending = append(pending, pendingDeps{cardID: created.ID, title: card.Title, deps: card.Dependencies})
			}
			for _, st := range card.Subtasks {
				st.ID = types.ID{}
				st.CardID = created.ID
				if _, err := dst.CreateSubtask(&st); err != nil {
					return board, fmt.Errorf("import subtask %q of %q: %w", st.Title, card.Title, err)
				}
			}
		}
	}

	// Dependencies go last so that every target exists.
	for _, p := range pending {
		for _, dep := range p.deps {
			if !dep.TargetID.IsZero() {
				if id, ok := newIDs[dep.TargetID.String()]; ok {
					dep.TargetID = id
				} else {
					dep.TargetID = types.ID{}
					if dep.Title == "" {
						res.Warnings = append(res.Warnings, fmt.Sprintf("card %q: dropped dependency on unknown card", p.title))
						continue
					}
				}
			}
			if err := dst.AddDependency(p.cardID, dep); err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("card %q: skipped dependency on %q: %v", p.title, dep.Label(), err))
			}
		}
	}
	return board, nil
}
