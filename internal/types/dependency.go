package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dependency declares that the owning card cannot be completed until the
// target card reaches RequiredStatus. The target is resolved by TargetID when
// set, otherwise by Title.
//
// RequiredStatus is a floor, not an exact column: a dependency requiring
// in_progress is also met by a target in review or done.
//
// Two legacy shapes exist at rest: a bare title string and an object with
// title and requiredStatus. Both decode into this record, so code past the
// decoder only ever sees the canonical form.
type Dependency struct {
	TargetID       ID     `json:"targetId,omitzero" yaml:"targetId,omitempty"`
	Title          string `json:"title" yaml:"title"`
	RequiredStatus Status `json:"requiredStatus,omitempty" yaml:"requiredStatus,omitempty"`
}

// DependsOn builds a dependency on target that requires it to be done.
func DependsOn(target *Card) Dependency {
	return Dependency{TargetID: target.ID, Title: target.Title}
}

// Required returns the status the target must reach, defaulting to done.
func (d Dependency) Required() Status {
	if d.RequiredStatus == "" {
		return StatusDone
	}
	return d.RequiredStatus
}

// References reports whether the dependency points at card.
func (d Dependency) References(card *Card) bool {
	if !d.TargetID.IsZero() {
		return d.TargetID == card.ID
	}
	return d.Title == card.Title
}

// Label is the human readable name of the target.
func (d Dependency) Label() string {
	if d.Title != "" {
		return d.Title
	}
	return d.TargetID.String()
}

// Validate checks the record is resolvable.
func (d Dependency) Validate() error {
	if d.TargetID.IsZero() && strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("dependency needs a target id or a title")
	}
	if d.RequiredStatus != "" && !d.RequiredStatus.IsValid() {
		return fmt.Errorf("invalid required status %q", d.RequiredStatus)
	}
	return nil
}

// dependencyRecord mirrors Dependency with the alternative key spellings
// seen in older exports.
type dependencyRecord struct {
	TargetID          string `json:"targetId" yaml:"targetId"`
	TargetIDSnake     string `json:"target_id" yaml:"target_id"`
	Title             string `json:"title" yaml:"title"`
	RequiredStatus    string `json:"requiredStatus" yaml:"requiredStatus"`
	RequiredStatusAlt string `json:"required_status" yaml:"required_status"`
}

func (r dependencyRecord) canonical() (Dependency, error) {
	target := r.TargetID
	if target == "" {
		target = r.TargetIDSnake
	}
	required := r.RequiredStatus
	if required == "" {
		required = r.RequiredStatusAlt
	}
	d := Dependency{TargetID: ParseID(target), Title: strings.TrimSpace(r.Title)}
	if required != "" {
		s, err := ParseStatus(required)
		if err != nil {
			return Dependency{}, err
		}
		d.RequiredStatus = s
	}
	return d, nil
}

// UnmarshalJSON accepts the canonical record and both legacy shapes.
func (d *Dependency) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var title string
		if err := json.Unmarshal(b, &title); err != nil {
			return err
		}
		*d = Dependency{Title: strings.TrimSpace(title)}
		return nil
	}
	var rec dependencyRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return fmt.Errorf("decode dependency: %w", err)
	}
	dep, err := rec.canonical()
	if err != nil {
		return fmt.Errorf("decode dependency: %w", err)
	}
	*d = dep
	return nil
}

// UnmarshalYAML accepts the canonical record and both legacy shapes.
func (d *Dependency) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*d = Dependency{Title: strings.TrimSpace(node.Value)}
		return nil
	case yaml.MappingNode:
		var rec dependencyRecord
		if err := node.Decode(&rec); err != nil {
			return fmt.Errorf("decode dependency: %w", err)
		}
		dep, err := rec.canonical()
		if err != nil {
			return fmt.Errorf("decode dependency at line %d: %w", node.Line, err)
		}
		*d = dep
		return nil
	}
	return fmt.Errorf("decode dependency at line %d: unexpected yaml node", node.Line)
}
