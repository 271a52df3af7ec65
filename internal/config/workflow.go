package config

import (
	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/workflow"
)

// Workflow config keys
const (
	KeyWorkflowLocale  = "workflow.locale"
	KeyWorkflowAliases = "workflow.aliases"
)

// aliasKeys maps the status segment of workflow.aliases.<status> keys.
var aliasKeys = map[string]types.Status{
	"not_started": types.StatusNotStarted,
	"in_progress": types.StatusInProgress,
	"in_review":   types.StatusInReview,
	"done":        types.StatusDone,
}

// WorkflowSettings holds the column naming conventions of a project.
type WorkflowSettings struct {
	// Locale selects the language of move denial messages.
	Locale string `json:"locale" yaml:"locale"`

	// Aliases overrides the column names recognised for a status. Statuses
	// not listed keep the built-in names.
	Aliases map[types.Status][]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// RegisterWorkflowDefaults registers the built-in column names as the
// defaults of the workflow.aliases.* keys.
// Called from Initialize() in config.go.
func RegisterWorkflowDefaults() {
	if v == nil {
		return
	}
	defaults := workflow.DefaultAliases()
	for key, status := range aliasKeys {
		v.SetDefault(KeyWorkflowAliases+"."+key, defaults[status])
	}
}

// GetWorkflowSettings returns the current workflow configuration.
func GetWorkflowSettings() WorkflowSettings {
	s := WorkflowSettings{Locale: GetString(KeyWorkflowLocale)}
	if s.Locale == "" {
		s.Locale = "pt-BR"
	}
	for key, status := range aliasKeys {
		names := GetStringSlice(KeyWorkflowAliases + "." + key)
		if len(names) == 0 {
			continue
		}
		if s.Aliases == nil {
			s.Aliases = make(map[types.Status][]string)
		}
		s.Aliases[status] = names
	}
	return s
}
