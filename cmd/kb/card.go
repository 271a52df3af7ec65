package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/kanbeads/internal/timeparsing"
	"github.com/steveyegge/kanbeads/internal/transition"
	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/ui"
)

var cardCmd = &cobra.Command{
	Use:     "card",
	GroupID: "cards",
	Short:   "Create, edit and move cards",
}

// cardInput is what create reads from flags or the form.
type cardInput struct {
	Title       string
	Description string
	Column      string
	Priority    string
	Due         string
	DependsOn   []string
}

var cardCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a card",
	Long: `Create a card in a column of the current board.

--due accepts compact durations (+2d, 3w), dates (2026-05-01) and natural
language ("next friday", "amanhã"). --depends-on takes card IDs or titles
and may be repeated.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		board := currentBoard()
		useForm, _ := cmd.Flags().GetBool("form")

		var in cardInput
		if len(args) == 1 {
			in.Title = args[0]
		}
		in.Description, _ = cmd.Flags().GetString("description")
		in.Column, _ = cmd.Flags().GetString("column")
		in.Priority, _ = cmd.Flags().GetString("priority")
		in.Due, _ = cmd.Flags().GetString("due")
		in.DependsOn, _ = cmd.Flags().GetStringSlice("depends-on")

		if useForm {
			if err := runCardForm(&in, manager.Columns(board.ID)); err != nil {
				FatalError("%v", err)
			}
		}
		if strings.TrimSpace(in.Title) == "" {
			FatalErrorWithHint("title is required", "Pass a title or use --form")
		}

		card, err := buildCard(board, in, time.Now())
		if err != nil {
			FatalError("%v", err)
		}
		created, err := manager.CreateCard(card)
		if err != nil {
			FatalError("%v", err)
		}
		settle()

		id := savedID(created.ID)
		if jsonOutput {
			c, _ := manager.Card(id)
			outputJSON(c)
			return
		}
		fmt.Printf("%s Created card %s: %s\n", ui.RenderPass("✓"), id, created.Title)
	},
}

// buildCard turns create input into a card. The column defaults to the
// board's first.
func buildCard(board *types.Board, in cardInput, now time.Time) (*types.Card, error) {
	card := &types.Card{
		BoardID:     board.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    types.PriorityMedium,
	}
	if in.Column != "" {
		col, err := manager.ResolveColumn(board.ID, in.Column)
		if err != nil {
			return nil, err
		}
		card.ColumnID = col.ID
	} else {
		cols := manager.Columns(board.ID)
		if len(cols) == 0 {
			return nil, fmt.Errorf("board %s has no columns", board.Title)
		}
		card.ColumnID = cols[0].ID
	}
	if in.Priority != "" {
		p, err := types.ParsePriority(in.Priority)
		if err != nil {
			return nil, err
		}
		card.Priority = p
	}
	if in.Due != "" {
		due, err := timeparsing.ParseDue(in.Due, now)
		if err != nil {
			return nil, err
		}
		card.DueDate = due
	}
	for _, ref := range in.DependsOn {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		target, err := manager.ResolveCard(ref)
		if err != nil {
			return nil, fmt.Errorf("--depends-on: %w", err)
		}
		card.Dependencies = append(card.Dependencies, types.DependsOn(target))
	}
	return card, nil
}

var cardUpdateCmd = &cobra.Command{
	Use:   "update <card>",
	Short: "Update a card's fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		card := mustCard(args[0])
		patch := make(map[string]any)
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			patch["title"] = v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			patch["description"] = v
		}
		if cmd.Flags().Changed("priority") {
			v, _ := cmd.Flags().GetString("priority")
			p, err := types.ParsePriority(v)
			if err != nil {
				FatalError("%v", err)
			}
			patch["priority"] = p
		}
		if cmd.Flags().Changed("due") {
			v, _ := cmd.Flags().GetString("due")
			due, err := timeparsing.ParseDue(v, time.Now())
			if err != nil {
				FatalError("%v", err)
			}
			if due == nil {
				patch["dueDate"] = nil
			} else {
				patch["dueDate"] = due.UTC().Format(time.RFC3339)
			}
		}
		if len(patch) == 0 {
			FatalErrorWithHint("nothing to update", "Pass --title, --description, --priority or --due")
		}
		if err := manager.UpdateCard(card.ID, patch); err != nil {
			FatalError("%v", err)
		}
		settle()
		if jsonOutput {
			c, _ := manager.Card(card.ID)
			outputJSON(c)
			return
		}
		fmt.Printf("%s Updated card %s\n", ui.RenderPass("✓"), card.ID)
	},
}

var cardDeleteCmd = &cobra.Command{
	Use:   "delete <card>",
	Short: "Delete a card and its subtasks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		card := mustCard(args[0])
		dependents, _ := manager.DependentsOf(card.ID)
		if err := manager.DeleteCard(card.ID); err != nil {
			FatalError("%v", err)
		}
		settle()
		if jsonOutput {
			outputJSON(map[string]any{"deleted": card.ID, "dependents": dependents})
			return
		}
		fmt.Printf("%s Deleted card %s: %s\n", ui.RenderPass("✓"), card.ID, card.Title)
		for _, d := range dependents {
			WarnError("%s (%s) still depends on %q", d.Title, d.ID, card.Title)
		}
	},
}

var cardMoveCmd = &cobra.Command{
	Use:   "move <card> <column>",
	Short: "Move a card to a column",
	Long: `Move a card to a column of its board.

The move is refused when it would finish a card whose dependencies are not
done, or reopen a done card that other unfinished cards depend on.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		index, _ := cmd.Flags().GetInt("index")
		card := mustCard(args[0])
		col := mustColumn(card.BoardID, args[1])

		v, err := manager.MoveCard(card.ID, col.ID, index)
		if denied, ok := transition.IsDenied(err); ok {
			if jsonOutput {
				outputJSONError(denied, string(denied.Verdict.Code))
			}
			if denied.Verdict.Remediation != "" {
				FatalErrorWithHint(denied.Error(), denied.Verdict.Remediation)
			}
			FatalError("%s", denied.Error())
		}
		if err != nil {
			FatalError("%v", err)
		}
		settle()
		if jsonOutput {
			outputJSON(v)
			return
		}
		fmt.Printf("%s Moved %s to %s\n", ui.RenderPass("✓"), card.Title, col.Name)
	},
}

var checkCmd = &cobra.Command{
	Use:     "check <card> <column>",
	GroupID: "deps",
	Short:   "Check whether a card may move to a column",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		card := mustCard(args[0])
		col := mustColumn(card.BoardID, args[1])
		v, err := manager.Authorize(card.ID, col.ID)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(v)
		} else if v.Allowed {
			fmt.Printf("%s %s can move to %s\n", ui.RenderPass("✓"), card.Title, col.Name)
		} else {
			fmt.Printf("%s %s\n", ui.RenderFail("✗"), v.Reason)
			if v.Remediation != "" {
				fmt.Println(ui.RenderMuted("  " + v.Remediation))
			}
		}
		if !v.Allowed {
			exit(1)
		}
	},
}

func init() {
	cardCreateCmd.Flags().StringP("description", "d", "", "Card description (markdown)")
	cardCreateCmd.Flags().StringP("column", "c", "", "Column ID or name (default: first column)")
	cardCreateCmd.Flags().StringP("priority", "p", "", "Priority: low, medium, high, critical")
	cardCreateCmd.Flags().String("due", "", "Due date (+2d, 2026-05-01, next friday)")
	cardCreateCmd.Flags().StringSlice("depends-on", nil, "Card IDs or titles this card depends on")
	cardCreateCmd.Flags().Bool("form", false, "Fill in the card with an interactive form")

	cardUpdateCmd.Flags().String("title", "", "New title")
	cardUpdateCmd.Flags().StringP("description", "d", "", "New description")
	cardUpdateCmd.Flags().StringP("priority", "p", "", "New priority")
	cardUpdateCmd.Flags().String("due", "", "New due date, or 'none' to clear it")

	cardMoveCmd.Flags().Int("index", -1, "Position within the column (-1 appends)")

	cardCmd.AddCommand(cardCreateCmd, cardUpdateCmd, cardDeleteCmd, cardMoveCmd, cardShowCmd)
	rootCmd.AddCommand(cardCmd, checkCmd)
}
