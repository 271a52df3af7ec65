// Package transition decides whether a card may move between columns.
//
// The workflow is a free graph: any column may follow any other. Only two
// rules restrict it, checked in order:
//
//  1. A card cannot enter a done column while a dependency does not hold.
//  2. A done card cannot leave done while other cards depend on it.
//
// AuthorizeMove is pure and idempotent, so drag-and-drop front ends call it
// on every hover.
package transition

import (
	"github.com/steveyegge/kanbeads/internal/deps"
	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/workflow"
)

// Code classifies a denial.
type Code string

// Denial codes
const (
	CodeUnmetDependencies Code = "unmet_dependencies"
	CodeHasDependents     Code = "has_dependents"
)

// Verdict is the outcome of an authorization check.
type Verdict struct {
	Allowed     bool         `json:"allowed"`
	Code        Code         `json:"code,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Remediation string       `json:"remediation,omitempty"`
	Blocking    []string     `json:"blocking,omitempty"`
	From        types.Status `json:"from"`
	To          types.Status `json:"to"`
}

// Authorizer applies the transition rules.
type Authorizer struct {
	eval     *deps.Evaluator
	messages Catalog
}

// New returns an authorizer using eval for dependency queries and the
// catalog for locale.
func New(eval *deps.Evaluator, locale string) *Authorizer {
	if eval == nil {
		eval = deps.New(nil)
	}
	return &Authorizer{eval: eval, messages: Messages(locale)}
}

// Model returns the workflow model behind the authorizer.
func (a *Authorizer) Model() *workflow.Model { return a.eval.Model() }

// Evaluator returns the dependency evaluator behind the authorizer.
func (a *Authorizer) Evaluator() *deps.Evaluator { return a.eval }

// Locale returns the locale of the reason texts.
func (a *Authorizer) Locale() string { return a.messages.Locale }

// AuthorizeMove checks moving card to the column targetColumnID. Reordering
// within the card's current column is always allowed.
func (a *Authorizer) AuthorizeMove(card *types.Card, targetColumnID types.ID, columns []*types.Column, all []*types.Card) Verdict {
	model := a.eval.Model()
	from := model.StatusForColumn(card.ColumnID, columns)
	to := model.StatusForColumn(targetColumnID, columns)
	v := Verdict{Allowed: true, From: from, To: to}

	if targetColumnID == card.ColumnID {
		return v
	}

	if to == types.StatusDone {
		if unmet := a.eval.Unmet(card, all, columns); len(unmet) > 0 {
			titles := make([]string, len(unmet))
			for i, d := range unmet {
				titles[i] = d.Label()
			}
			v.Allowed = false
			v.Code = CodeUnmetDependencies
			v.Reason = a.messages.unmet(titles)
			v.Remediation = a.messages.UnmetRemediation
			v.Blocking = titles
			return v
		}
	}

	if from == types.StatusDone && to != types.StatusDone {
		if dependents := a.eval.DependentsOf(card, all); len(dependents) > 0 {
			titles := make([]string, len(dependents))
			for i, d := range dependents {
				titles[i] = d.Title
			}
			v.Allowed = false
			v.Code = CodeHasDependents
			v.Reason = a.messages.dependents(titles)
			v.Remediation = a.messages.HasDependentsRemediate
			v.Blocking = titles
			return v
		}
	}

	return v
}

// AuthorizeHover is AuthorizeMove under the name drag handlers use.
func (a *Authorizer) AuthorizeHover(card *types.Card, targetColumnID types.ID, columns []*types.Column, all []*types.Card) Verdict {
	return a.AuthorizeMove(card, targetColumnID, columns, all)
}

// Err converts a denial into a *DeniedError; it returns nil when the move is
// allowed.
func (v Verdict) Err(card *types.Card, targetColumnID types.ID) error {
	if v.Allowed {
		return nil
	}
	return &DeniedError{CardID: card.ID, CardTitle: card.Title, Target: targetColumnID, Verdict: v}
}
