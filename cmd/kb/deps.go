package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/ui"
)

var depCmd = &cobra.Command{
	Use:     "dep",
	GroupID: "deps",
	Short:   "Manage card dependencies",
}

var depAddCmd = &cobra.Command{
	Use:   "add <card> <depends-on>",
	Short: "Make a card depend on another",
	Long: `Make a card depend on another card of the same board.

By default the dependency holds once the other card is done. --status
relaxes it to an earlier status (in_progress, in_review). Dependencies that
would form a cycle are refused.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		card := mustCard(args[0])
		target := mustCard(args[1])
		dep := types.DependsOn(target)
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			status, err := types.ParseStatus(s)
			if err != nil {
				FatalError("%v", err)
			}
			dep.RequiredStatus = status
		}
		if err := manager.AddDependency(card.ID, dep); err != nil {
			FatalError("%v", err)
		}
		settle()
		if jsonOutput {
			c, _ := manager.Card(card.ID)
			outputJSON(c)
			return
		}
		fmt.Printf("%s %s now depends on %s (%s)\n", ui.RenderPass("✓"), card.Title, target.Title, dep.Required())
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <card> <depends-on>",
	Short: "Remove a dependency",
	Long: `Remove a dependency from a card. The second argument is matched
against the dependency's target ID or title, so dependencies on deleted
cards can still be removed.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		card := mustCard(args[0])
		if err := manager.RemoveDependency(card.ID, args[1]); err != nil {
			FatalError("%v", err)
		}
		settle()
		if !jsonOutput {
			fmt.Printf("%s Removed dependency %s from %s\n", ui.RenderPass("✓"), args[1], card.Title)
		}
	},
}

var readyCmd = &cobra.Command{
	Use:     "ready",
	GroupID: "deps",
	Short:   "List open cards whose dependencies are all met",
	Run: func(cmd *cobra.Command, args []string) {
		board := currentBoard()
		cards := manager.Ready(board.ID)
		if jsonOutput {
			outputJSON(cards)
			return
		}
		if len(cards) == 0 {
			fmt.Printf("\n%s No ready cards\n\n", ui.RenderWarn("✨"))
			return
		}
		fmt.Printf("\n%s Ready cards (%d):\n\n", ui.RenderAccent("📋"), len(cards))
		for i, c := range cards {
			fmt.Printf("%d. %s %s %s\n", i+1, ui.RenderPriority(c.Priority), ui.RenderMuted(c.ID.String()), c.Title)
		}
		fmt.Println()
	},
}

var blockedCmd = &cobra.Command{
	Use:     "blocked",
	GroupID: "deps",
	Short:   "List open cards with unmet dependencies",
	Run: func(cmd *cobra.Command, args []string) {
		board := currentBoard()
		blocked := manager.Blocked(board.ID)
		if jsonOutput {
			outputJSON(blocked)
			return
		}
		if len(blocked) == 0 {
			fmt.Printf("\n%s No blocked cards\n\n", ui.RenderPass("✨"))
			return
		}
		fmt.Printf("\n%s Blocked cards (%d):\n\n", ui.RenderFail("🚫"), len(blocked))
		for _, b := range blocked {
			labels := make([]string, len(b.Unmet))
			for i, d := range b.Unmet {
				labels[i] = d.Label()
			}
			fmt.Printf("%s %s\n", ui.RenderMuted(b.Card.ID.String()), b.Card.Title)
			fmt.Printf("  waiting on: %s\n", strings.Join(labels, ", "))
		}
		fmt.Println()
	},
}

var dependentsCmd = &cobra.Command{
	Use:     "dependents <card>",
	GroupID: "deps",
	Short:   "List the cards that depend on a card",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		card := mustCard(args[0])
		cards, err := manager.DependentsOf(card.ID)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(cards)
			return
		}
		if len(cards) == 0 {
			fmt.Printf("No cards depend on %s\n", card.Title)
			return
		}
		for _, c := range cards {
			status, _ := manager.Status(c.ID)
			fmt.Printf("%-6s %s %s\n", c.ID, ui.RenderStatus(status), c.Title)
		}
	},
}

func init() {
	depAddCmd.Flags().String("status", "", "Status the dependency must reach (default: done)")
	depCmd.AddCommand(depAddCmd, depRemoveCmd)
	rootCmd.AddCommand(depCmd, readyCmd, blockedCmd, dependentsCmd)
}
