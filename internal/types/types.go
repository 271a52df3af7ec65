// Package types defines the core data structures of the kb task board.
package types

import (
	"slices"
	"time"
)

// Kind names an entity collection in the remote store.
type Kind string

// Entity kinds
const (
	KindBoard   Kind = "board"
	KindColumn  Kind = "column"
	KindCard    Kind = "card"
	KindSubtask Kind = "subtask"
)

// IsValid reports whether k is a known entity kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindBoard, KindColumn, KindCard, KindSubtask:
		return true
	}
	return false
}

// Board is a named set of columns. Deleting a board removes its columns,
// cards and subtasks.
type Board struct {
	ID        ID        `json:"id,omitzero" yaml:"id,omitempty"`
	Title     string    `json:"title" yaml:"title" validate:"notblank,max=500"`
	Position  int       `json:"position" yaml:"position" validate:"gte=0"`
	CreatedAt time.Time `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitzero" yaml:"updatedAt,omitempty"`
}

// Column is a workflow stage on a board. Positions are contiguous (0..n-1)
// within a board.
type Column struct {
	ID        ID        `json:"id,omitzero" yaml:"id,omitempty"`
	BoardID   ID        `json:"boardId,omitzero" yaml:"boardId,omitempty"`
	Name      string    `json:"name" yaml:"name" validate:"notblank,max=500"`
	Position  int       `json:"position" yaml:"position" validate:"gte=0"`
	CreatedAt time.Time `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitzero" yaml:"updatedAt,omitempty"`
}

// Card is a unit of work. It sits in exactly one column; its canonical status
// is derived from that column.
type Card struct {
	ID           ID           `json:"id,omitzero" yaml:"id,omitempty"`
	BoardID      ID           `json:"boardId,omitzero" yaml:"boardId,omitempty"`
	ColumnID     ID           `json:"columnId,omitzero" yaml:"columnId,omitempty"`
	Title        string       `json:"title" yaml:"title" validate:"notblank,max=500"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	Priority     Priority     `json:"priority" yaml:"priority" validate:"gte=0,lte=3"`
	Position     int          `json:"position" yaml:"position" validate:"gte=0"`
	DueDate      *time.Time   `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	CreatedAt    time.Time    `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
	UpdatedAt    time.Time    `json:"updatedAt,omitzero" yaml:"updatedAt,omitempty"`
}

// Subtask is a checklist item owned by a card.
type Subtask struct {
	ID               ID         `json:"id,omitzero" yaml:"id,omitempty"`
	CardID           ID         `json:"cardId,omitzero" yaml:"cardId,omitempty"`
	Title            string     `json:"title" yaml:"title" validate:"notblank,max=500"`
	Priority         Priority   `json:"priority" yaml:"priority" validate:"gte=0,lte=3"`
	Importance       int        `json:"importance,omitempty" yaml:"importance,omitempty" validate:"gte=0,lte=10"`
	Category         string     `json:"category,omitempty" yaml:"category,omitempty" validate:"max=100"`
	EstimatedMinutes int        `json:"estimatedMinutes,omitempty" yaml:"estimatedMinutes,omitempty" validate:"gte=0"`
	ActualMinutes    int        `json:"actualMinutes,omitempty" yaml:"actualMinutes,omitempty" validate:"gte=0"`
	Tags             []string   `json:"tags,omitempty" yaml:"tags,omitempty" validate:"dive,notblank,max=50"`
	Completed        bool       `json:"completed" yaml:"completed"`
	CompletedAt      *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	Position         int        `json:"position" yaml:"position" validate:"gte=0"`
	CreatedAt        time.Time  `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
}

// Record is implemented by pointers to every entity type. It lets ordered
// collections and typed repositories work over any kind.
type Record[T any] interface {
	*T
	EntityKind() Kind
	EntityID() ID
	SetEntityID(ID)
	// ParentID is the owner the entity is listed under (zero for boards).
	ParentID() ID
	// References are every ID the entity points at, the parent included.
	References() []ID
	EntityPosition() int
	SetPosition(int)
	Clone() *T
	Validate() error
}

func (b *Board) EntityKind() Kind    { return KindBoard }
func (b *Board) EntityID() ID        { return b.ID }
func (b *Board) SetEntityID(id ID)   { b.ID = id }
func (b *Board) ParentID() ID        { return ID{} }
func (b *Board) References() []ID    { return nil }
func (b *Board) EntityPosition() int { return b.Position }
func (b *Board) SetPosition(pos int) { b.Position = pos }

func (c *Column) EntityKind() Kind    { return KindColumn }
func (c *Column) EntityID() ID        { return c.ID }
func (c *Column) SetEntityID(id ID)   { c.ID = id }
func (c *Column) ParentID() ID        { return c.BoardID }
func (c *Column) References() []ID    { return []ID{c.BoardID} }
func (c *Column) EntityPosition() int { return c.Position }
func (c *Column) SetPosition(pos int) { c.Position = pos }

func (c *Card) EntityKind() Kind    { return KindCard }
func (c *Card) EntityID() ID        { return c.ID }
func (c *Card) SetEntityID(id ID)   { c.ID = id }
func (c *Card) ParentID() ID        { return c.BoardID }
func (c *Card) References() []ID    { return []ID{c.BoardID, c.ColumnID} }
func (c *Card) EntityPosition() int { return c.Position }
func (c *Card) SetPosition(pos int) { c.Position = pos }

func (s *Subtask) EntityKind() Kind    { return KindSubtask }
func (s *Subtask) EntityID() ID        { return s.ID }
func (s *Subtask) SetEntityID(id ID)   { s.ID = id }
func (s *Subtask) ParentID() ID        { return s.CardID }
func (s *Subtask) References() []ID    { return []ID{s.CardID} }
func (s *Subtask) EntityPosition() int { return s.Position }
func (s *Subtask) SetPosition(pos int) { s.Position = pos }

// Clone returns a copy of the board.
func (b *Board) Clone() *Board {
	out := *b
	return &out
}

// Clone returns a copy of the column.
func (c *Column) Clone() *Column {
	out := *c
	return &out
}

// Clone returns a deep copy of the card, dependency list included.
func (c *Card) Clone() *Card {
	out := *c
	out.Dependencies = slices.Clone(c.Dependencies)
	if c.DueDate != nil {
		due := *c.DueDate
		out.DueDate = &due
	}
	return &out
}

// Clone returns a deep copy of the subtask.
func (s *Subtask) Clone() *Subtask {
	out := *s
	out.Tags = slices.Clone(s.Tags)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}

// StripTempReferences clears dependency targets that still carry a
// temporary ID. The title keeps the dependency resolvable until the target
// reconciles and the reference is rewritten.
func (c *Card) StripTempReferences() {
	for i := range c.Dependencies {
		if c.Dependencies[i].TargetID.IsTemp() {
			c.Dependencies[i].TargetID = ID{}
		}
	}
}

// SetCompleted toggles completion, stamping or clearing CompletedAt.
func (s *Subtask) SetCompleted(done bool, now time.Time) {
	s.Completed = done
	if done {
		s.CompletedAt = &now
	} else {
		s.CompletedAt = nil
	}
}

// BlockedCard is a card whose dependencies do not all hold.
type BlockedCard struct {
	Card  *Card        `json:"card"`
	Unmet []Dependency `json:"unmet"`
}
