package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the canonical workflow state derived from a card's column.
type Status string

// Canonical statuses, in workflow order.
const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
)

// Statuses lists the canonical statuses in rank order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusInReview, StatusDone}

// IsValid checks if the status value is one of the canonical statuses.
func (s Status) IsValid() bool {
	return s.Rank() >= 0
}

// Rank is the position of the status in the workflow order, or -1 when the
// status is not canonical.
func (s Status) Rank() int {
	switch s {
	case StatusNotStarted:
		return 0
	case StatusInProgress:
		return 1
	case StatusInReview:
		return 2
	case StatusDone:
		return 3
	}
	return -1
}

// AtLeast reports whether s has reached other in the workflow order.
func (s Status) AtLeast(other Status) bool {
	return s.Rank() >= other.Rank()
}

// ParseStatus accepts canonical values and their spaced or dashed spellings
// ("in progress", "in-progress").
func ParseStatus(raw string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	s := Status(norm)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid status %q (want one of not_started, in_progress, in_review, done)", raw)
	}
	return s, nil
}

// Priority ranks cards and subtasks. The zero value is low.
type Priority int

// Priorities, ordinal 0..3.
const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = []string{"low", "medium", "high", "critical"}

// Localized spellings accepted by ParsePriority.
var priorityAliases = map[string]Priority{
	"baixa":   PriorityLow,
	"média":   PriorityMedium,
	"media":   PriorityMedium,
	"alta":    PriorityHigh,
	"crítica": PriorityCritical,
	"critica": PriorityCritical,
	"urgente": PriorityCritical,
}

// IsValid checks if the priority is within range.
func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

func (p Priority) String() string {
	if !p.IsValid() {
		return strconv.Itoa(int(p))
	}
	return priorityNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(b []byte) error {
	parsed, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePriority accepts names (English or Portuguese) and ordinals 0..3.
func ParsePriority(raw string) (Priority, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if norm == "" {
		return PriorityLow, nil
	}
	for i, name := range priorityNames {
		if norm == name {
			return Priority(i), nil
		}
	}
	if p, ok := priorityAliases[norm]; ok {
		return p, nil
	}
	if n, err := strconv.Atoi(norm); err == nil && Priority(n).IsValid() {
		return Priority(n), nil
	}
	return PriorityLow, fmt.Errorf("invalid priority %q (want low, medium, high, critical or 0-3)", raw)
}
