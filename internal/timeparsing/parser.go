// Package timeparsing resolves the due-date expressions accepted on the
// command line. Layers are tried in order:
//
//  1. Compact offset (+6h, -1d, +2w)
//  2. Absolute date or timestamp (2025-02-01, RFC3339)
//  3. Natural language, English or Portuguese (tomorrow, next monday, amanhã)
package timeparsing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/br"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrEmpty is returned for a blank expression.
var ErrEmpty = errors.New("empty time expression")

// English is tried before Portuguese so the rule sets never merge matches.
var nlp = []*when.Parser{newNLP(en.All...), newNLP(br.All...)}

func newNLP(lang ...rules.Rule) *when.Parser {
	w := when.New(nil)
	w.Add(lang...)
	w.Add(common.All...)
	return w
}

// absoluteLayouts are tried in order; date-only values resolve to
// midnight in now's location.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseNaturalLanguage resolves phrases like "tomorrow at 9am", "in 3
// days" or "3 days ago" relative to now.
func ParseNaturalLanguage(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmpty
	}
	for _, w := range nlp {
		r, err := w.Parse(s, now)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
		}
		if r != nil {
			return r.Time, nil
		}
	}
	return time.Time{}, fmt.Errorf("no date found in %q", s)
}

// ParseAbsolute parses an RFC3339 timestamp or a local date.
func ParseAbsolute(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a date or timestamp: %q", s)
}

// ParseRelativeTime runs the layers in order and returns the first match.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmpty
	}
	if IsCompactDuration(s) {
		return ParseCompactDuration(s, now)
	}
	if t, err := ParseAbsolute(s, now.Location()); err == nil {
		return t, nil
	}
	t, err := ParseNaturalLanguage(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q as a time (try +2d, 2025-02-01 or \"next friday\")", s)
	}
	return t, nil
}

// ParseDue resolves a due-date flag. "none" and "clear" remove the due
// date and return nil.
func ParseDue(s string, now time.Time) (*time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "clear":
		return nil, nil
	}
	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
