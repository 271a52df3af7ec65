package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/ui"
)

// cardDetails is the JSON shape of kb card show.
type cardDetails struct {
	*types.Card
	Status     types.Status       `json:"status"`
	Column     string             `json:"column"`
	Subtasks   []*types.Subtask   `json:"subtasks"`
	Unmet      []types.Dependency `json:"unmet"`
	Dependents []*types.Card      `json:"dependents"`
}

var cardShowCmd = &cobra.Command{
	Use:   "show <card>",
	Short: "Show a card with its subtasks and dependencies",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		card := mustCard(args[0])
		d := cardDetails{Card: card, Subtasks: manager.Subtasks(card.ID)}
		d.Status, _ = manager.Status(card.ID)
		if col, ok := manager.Column(card.ColumnID); ok {
			d.Column = col.Name
		}
		d.Unmet, _ = manager.Unmet(card.ID)
		d.Dependents, _ = manager.DependentsOf(card.ID)

		if jsonOutput {
			outputJSON(d)
			return
		}
		displayCard(d)
	},
}

func displayCard(d cardDetails) {
	fmt.Printf("%s %s\n", ui.RenderAccent(d.Title), ui.RenderMuted(d.ID.String()))
	fmt.Printf("Column: %s  Status: %s  Priority: %s\n", d.Column, ui.RenderStatus(d.Status), ui.RenderPriority(d.Priority))
	if d.DueDate != nil {
		fmt.Printf("Due: %s\n", d.DueDate.Local().Format("Mon 2006-01-02 15:04"))
	}
	if d.Description != "" {
		fmt.Println()
		fmt.Println(ui.RenderMarkdown(d.Description))
	}

	if len(d.Subtasks) > 0 {
		done := 0
		for _, s := range d.Subtasks {
			if s.Completed {
				done++
			}
		}
		fmt.Printf("\n%s %s\n", ui.RenderCategory("Subtasks"), ui.RenderMuted(fmt.Sprintf("%d/%d", done, len(d.Subtasks))))
		for _, s := range d.Subtasks {
			box := "[ ]"
			if s.Completed {
				box = ui.RenderPass("[x]")
			}
			fmt.Printf("  %s %s %s\n", box, s.Title, ui.RenderMuted(s.ID.String()))
		}
	}

	if len(d.Dependencies) > 0 {
		unmet := make(map[string]bool, len(d.Unmet))
		for _, u := range d.Unmet {
			unmet[u.Label()] = true
		}
		fmt.Printf("\n%s\n", ui.RenderCategory("Depends on"))
		for _, dep := range d.Dependencies {
			mark := ui.RenderPass("✓")
			if unmet[dep.Label()] {
				mark = ui.RenderFail("✗")
			}
			fmt.Printf("  %s %s %s\n", mark, dep.Label(), ui.RenderMuted("needs "+string(dep.Required())))
		}
	}

	if len(d.Dependents) > 0 {
		fmt.Printf("\n%s\n", ui.RenderCategory("Blocks"))
		for _, c := range d.Dependents {
			fmt.Printf("  %-6s %s\n", c.ID, c.Title)
		}
	}
}
