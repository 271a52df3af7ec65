package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/ui"
)

var subtaskCmd = &cobra.Command{
	Use:     "subtask",
	GroupID: "cards",
	Short:   "Manage a card's subtasks",
}

var subtaskAddCmd = &cobra.Command{
	Use:   "add <card> <title>",
	Short: "Append a subtask to a card",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		card := mustCard(args[0])
		s := &types.Subtask{CardID: card.ID, Title: args[1], Priority: types.PriorityMedium}
		if p, _ := cmd.Flags().GetString("priority"); p != "" {
			prio, err := types.ParsePriority(p)
			if err != nil {
				FatalError("%v", err)
			}
			s.Priority = prio
		}
		created, err := manager.CreateSubtask(s)
		if err != nil {
			FatalError("%v", err)
		}
		settle()
		id := savedID(created.ID)
		if jsonOutput {
			saved, _ := manager.Subtask(id)
			outputJSON(saved)
			return
		}
		fmt.Printf("%s Added subtask %s to %s\n", ui.RenderPass("✓"), id, card.Title)
	},
}

var subtaskDoneCmd = &cobra.Command{
	Use:   "done <card> <subtask>",
	Short: "Mark a subtask completed",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		undo, _ := cmd.Flags().GetBool("undo")
		s := mustSubtask(mustCard(args[0]), args[1])
		if err := manager.SetSubtaskCompleted(s.ID, !undo); err != nil {
			FatalError("%v", err)
		}
		settle()
		if jsonOutput {
			saved, _ := manager.Subtask(s.ID)
			outputJSON(saved)
			return
		}
		fmt.Printf("%s %s\n", ui.RenderPass("✓"), s.Title)
	},
}

var subtaskRemoveCmd = &cobra.Command{
	Use:   "remove <card> <subtask>",
	Short: "Delete a subtask",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s := mustSubtask(mustCard(args[0]), args[1])
		if err := manager.DeleteSubtask(s.ID); err != nil {
			FatalError("%v", err)
		}
		settle()
		if !jsonOutput {
			fmt.Printf("%s Removed subtask %s\n", ui.RenderPass("✓"), s.Title)
		}
	},
}

var subtaskReplaceCmd = &cobra.Command{
	Use:   "replace <card> --file <subtasks.yaml>",
	Short: "Replace a card's subtasks with a list from a file",
	Long: `Replace a card's subtask list with the YAML list in --file.

Entries with an id keep that subtask and update it; entries without one are
created; subtasks missing from the list are deleted. The card's subtasks end
up in file order.

  - id: "42"
    title: Write tests
    completed: true
  - title: Update docs`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		card := mustCard(args[0])
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			FatalErrorWithHint("--file is required", "Export the current list with 'kb subtask list <card> > subtasks.yaml'")
		}
		next, err := readSubtasks(path, manager.Subtasks(card.ID))
		if err != nil {
			FatalError("%v", err)
		}
		if err := manager.ReplaceSubtasks(card.ID, next); err != nil {
			FatalError("%v", err)
		}
		settle()
		if jsonOutput {
			outputJSON(manager.Subtasks(card.ID))
			return
		}
		fmt.Printf("%s %s now has %d subtask(s)\n", ui.RenderPass("✓"), card.Title, len(next))
	},
}

var subtaskListCmd = &cobra.Command{
	Use:   "list <card>",
	Short: "Print a card's subtasks as YAML",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		subs := manager.Subtasks(mustCard(args[0]).ID)
		if jsonOutput {
			outputJSON(subs)
			return
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(subs); err != nil {
			FatalError("%v", err)
		}
		_ = enc.Close()
	},
}

// readSubtasks reads a YAML subtask list. Entries naming an existing
// subtask start from its current fields, so omitted keys are kept.
func readSubtasks(path string, current []*types.Subtask) ([]*types.Subtask, error) {
	// #nosec G304 - path is a user-supplied CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	byID := make(map[types.ID]*types.Subtask, len(current))
	for _, s := range current {
		byID[s.ID] = s
	}

	subs := make([]*types.Subtask, 0, len(nodes))
	for i := range nodes {
		var head struct {
			ID types.ID `yaml:"id"`
		}
		if err := nodes[i].Decode(&head); err != nil {
			return nil, fmt.Errorf("parse %s: entry %d: %w", path, i+1, err)
		}
		s := &types.Subtask{Priority: types.PriorityMedium}
		if live, ok := byID[head.ID]; ok {
			s = live.Clone()
		}
		if err := nodes[i].Decode(s); err != nil {
			return nil, fmt.Errorf("parse %s: entry %d: %w", path, i+1, err)
		}
		subs = append(subs, s)
	}
	return subs, nil
}

func mustSubtask(card *types.Card, ref string) *types.Subtask {
	for _, s := range manager.Subtasks(card.ID) {
		if s.ID.String() == ref || s.Title == ref {
			return s
		}
	}
	FatalError("subtask %q not found on %s", ref, card.Title)
	return nil
}

func init() {
	subtaskAddCmd.Flags().StringP("priority", "p", "", "Priority: low, medium, high, critical")
	subtaskDoneCmd.Flags().Bool("undo", false, "Mark the subtask not completed")
	subtaskReplaceCmd.Flags().StringP("file", "f", "", "YAML list of subtasks")

	subtaskCmd.AddCommand(subtaskAddCmd, subtaskDoneCmd, subtaskRemoveCmd, subtaskReplaceCmd, subtaskListCmd)
	rootCmd.AddCommand(subtaskCmd)
}
