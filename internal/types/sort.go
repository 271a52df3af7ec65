package types

import (
	"cmp"
	"slices"
	"strings"
)

// CardSortField names a card attribute used for ordering listings.
type CardSortField string

// Sort fields
const (
	SortFieldPosition CardSortField = "position"
	SortFieldPriority CardSortField = "priority"
	SortFieldDue      CardSortField = "due"
	SortFieldTitle    CardSortField = "title"
	SortFieldCreated  CardSortField = "created"
)

// SortDirection is ascending or descending.
type SortDirection string

// Sort directions
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// CardSortOption is one key of a multi-key ordering.
type CardSortOption struct {
	Field     CardSortField
	Direction SortDirection
}

// DefaultCardSortOptions orders cards the way they sit in their column.
func DefaultCardSortOptions() []CardSortOption {
	return []CardSortOption{{Field: SortFieldPosition, Direction: SortAsc}}
}

// ParseCardSortOrder converts a comma-delimited string (e.g.
// "priority-desc,due-asc") into sort options. Unrecognised fields or
// directions are skipped, as are repeated fields.
func ParseCardSortOrder(raw string) []CardSortOption {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	options := make([]CardSortOption, 0, len(parts))
	seen := make(map[CardSortField]bool)

	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}

		field, dir := splitSortToken(token)
		sortField := mapSortField(field)
		if sortField == "" {
			continue
		}

		direction := mapSortDirection(dir)
		if direction == "" {
			continue
		}

		if seen[sortField] {
			continue
		}
		seen[sortField] = true

		options = append(options, CardSortOption{
			Field:     sortField,
			Direction: direction,
		})
	}

	return options
}

// EncodeCardSortOrder converts sort options back into their canonical
// string form.
func EncodeCardSortOrder(options []CardSortOption) string {
	tokens := make([]string, 0, len(options))
	for _, opt := range options {
		if opt.Field == "" || opt.Direction == "" {
			continue
		}
		tokens = append(tokens, string(opt.Field)+"-"+string(opt.Direction))
	}
	return strings.Join(tokens, ",")
}

// SortCards orders cards in place. Cards without a due date sort after
// those with one regardless of direction.
func SortCards(cards []*Card, options []CardSortOption) {
	if len(options) == 0 {
		options = DefaultCardSortOptions()
	}
	slices.SortStableFunc(cards, func(a, b *Card) int {
		for _, opt := range options {
			c := compareCards(a, b, opt.Field)
			if opt.Field == SortFieldDue && (a.DueDate == nil) != (b.DueDate == nil) {
				if c != 0 {
					return c
				}
				continue
			}
			if opt.Direction == SortDesc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareCards(a, b *Card, field CardSortField) int {
	switch field {
	case SortFieldPosition:
		return cmp.Compare(a.Position, b.Position)
	case SortFieldPriority:
		return cmp.Compare(a.Priority, b.Priority)
	case SortFieldTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortFieldCreated:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortFieldDue:
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Compare(*b.DueDate)
	}
	return 0
}

func splitSortToken(token string) (string, string) {
	if idx := strings.IndexAny(token, ":-"); idx >= 0 {
		return strings.ToLower(strings.TrimSpace(token[:idx])), strings.ToLower(strings.TrimSpace(token[idx+1:]))
	}
	return strings.ToLower(token), "asc"
}

func mapSortField(raw string) CardSortField {
	switch raw {
	case "position", "pos":
		return SortFieldPosition
	case "priority":
		return SortFieldPriority
	case "due", "due_date", "duedate":
		return SortFieldDue
	case "title":
		return SortFieldTitle
	case "created", "created_at":
		return SortFieldCreated
	default:
		return ""
	}
}

func mapSortDirection(raw string) SortDirection {
	switch raw {
	case "asc", "ascending":
		return SortAsc
	case "desc", "descending":
		return SortDesc
	default:
		return ""
	}
}
