// Package workflow maps board columns to canonical workflow statuses.
//
// Column names are free text. A column's status is found by comparing its
// normalized name against configured alias sets; anything unrecognised is
// treated as not started. Every function here is pure.
package workflow

import (
	"strings"

	"github.com/steveyegge/kanbeads/internal/types"
)

// DefaultAliases are the conventional column names for each status, in
// English and Portuguese.
func DefaultAliases() map[types.Status][]string {
	return map[types.Status][]string{
		types.StatusNotStarted: {"not started", "to do", "todo", "não iniciado", "nao iniciado", "a fazer"},
		types.StatusInProgress: {"in progress", "em progresso", "em andamento"},
		types.StatusInReview:   {"in review", "em revisão", "em revisao"},
		types.StatusDone:       {"done", "concluído", "concluido"},
	}
}

// Model resolves column names to statuses.
type Model struct {
	byName map[string]types.Status
}

// New builds a model from alias sets. Statuses missing from aliases keep
// their defaults; a nil map yields the default model.
func New(aliases map[types.Status][]string) *Model {
	merged := DefaultAliases()
	for status, names := range aliases {
		if !status.IsValid() || len(names) == 0 {
			continue
		}
		merged[status] = names
	}
	m := &Model{byName: make(map[string]types.Status)}
	// Ranked order so that a name listed under two statuses resolves to the
	// lower one deterministically.
	for i := len(types.Statuses) - 1; i >= 0; i-- {
		status := types.Statuses[i]
		for _, name := range merged[status] {
			if key := Normalize(name); key != "" {
				m.byName[key] = status
			}
		}
	}
	return m
}

// Default returns the model with the built-in alias sets.
func Default() *Model {
	return New(nil)
}

// Normalize trims, case-folds and collapses inner whitespace.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// StatusForName maps a column name to its status.
func (m *Model) StatusForName(name string) types.Status {
	if s, ok := m.byName[Normalize(name)]; ok {
		return s
	}
	return types.StatusNotStarted
}

// StatusForColumn maps the column with columnID to its status. An unknown
// column ID maps to not started.
func (m *Model) StatusForColumn(columnID types.ID, columns []*types.Column) types.Status {
	for _, col := range columns {
		if col.ID == columnID {
			return m.StatusForName(col.Name)
		}
	}
	return types.StatusNotStarted
}

// ColumnIDForRequiredStatus returns the first column, by position, whose
// status is required. It reports false when the board has no such column.
func (m *Model) ColumnIDForRequiredStatus(required types.Status, columns []*types.Column) (types.ID, bool) {
	var best *types.Column
	for _, col := range columns {
		if m.StatusForName(col.Name) != required {
			continue
		}
		if best == nil || col.Position < best.Position {
			best = col
		}
	}
	if best == nil {
		return types.ID{}, false
	}
	return best.ID, true
}

// IsDone reports whether the column maps to done.
func (m *Model) IsDone(columnID types.ID, columns []*types.Column) bool {
	return m.StatusForColumn(columnID, columns) == types.StatusDone
}

// Aliases returns the normalized names that map to status.
func (m *Model) Aliases(status types.Status) []string {
	var out []string
	for name, s := range m.byName {
		if s == status {
			out = append(out, name)
		}
	}
	return out
}
