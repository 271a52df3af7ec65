package workflow

import (
	"testing"

	"github.com/steveyegge/kanbeads/internal/types"
)

func board(names ...string) []*types.Column {
	cols := make([]*types.Column, len(names))
	for i, n := range names {
		cols[i] = &types.Column{ID: types.RemoteID(string(rune('a' + i))), Name: n, Position: i}
	}
	return cols
}

func TestStatusForName(t *testing.T) {
	m := Default()
	tests := []struct {
		name string
		want types.Status
	}{
		{"Não Iniciado", types.StatusNotStarted},
		{"To Do", types.StatusNotStarted},
		{"  em   progresso ", types.StatusInProgress},
		{"IN REVIEW", types.StatusInReview},
		{"Em Revisão", types.StatusInReview},
		{"Concluído", types.StatusDone},
		{"done", types.StatusDone},
		{"Backlog", types.StatusNotStarted},
		{"", types.StatusNotStarted},
	}
	for _, tt := range tests {
		if got := m.StatusForName(tt.name); got != tt.want {
			t.Errorf("StatusForName(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestStatusForColumnUnknownID(t *testing.T) {
	m := Default()
	cols := board("Done")
	if got := m.StatusForColumn(types.RemoteID("zz"), cols); got != types.StatusNotStarted {
		t.Errorf("unknown column mapped to %s", got)
	}
	if got := m.StatusForColumn(cols[0].ID, cols); got != types.StatusDone {
		t.Errorf("Done column mapped to %s", got)
	}
}

func TestColumnIDForRequiredStatus(t *testing.T) {
	m := Default()
	cols := board("A Fazer", "Em Progresso", "Concluído", "Done")
	// Present out of order to check position wins over slice order.
	cols[2].Position, cols[3].Position = 3, 2

	id, ok := m.ColumnIDForRequiredStatus(types.StatusDone, cols)
	if !ok || id != cols[3].ID {
		t.Errorf("done column = %v %v, want %v", id, ok, cols[3].ID)
	}

	if _, ok := m.ColumnIDForRequiredStatus(types.StatusInReview, cols); ok {
		t.Errorf("board without review column reported one")
	}
}

func TestCustomAliases(t *testing.T) {
	m := New(map[types.Status][]string{
		types.StatusDone: {"Shipped"},
	})
	if got := m.StatusForName("shipped"); got != types.StatusDone {
		t.Errorf("custom alias ignored: %s", got)
	}
	if got := m.StatusForName("Done"); got != types.StatusNotStarted {
		t.Errorf("replaced alias still honoured: %s", got)
	}
	if got := m.StatusForName("em andamento"); got != types.StatusInProgress {
		t.Errorf("default aliases lost for other statuses: %s", got)
	}
}

func TestStatusForColumnIsIdempotent(t *testing.T) {
	m := Default()
	cols := board("Todo", "Done")
	first := m.StatusForColumn(cols[1].ID, cols)
	for i := 0; i < 3; i++ {
		if got := m.StatusForColumn(cols[1].ID, cols); got != first {
			t.Fatalf("call %d returned %s, first returned %s", i, got, first)
		}
	}
}
