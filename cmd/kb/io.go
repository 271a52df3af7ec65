package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/kanbeads/internal/boardfile"
	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export <file>",
	GroupID: "data",
	Short:   "Write boards to a YAML or JSON snapshot",
	Long: `Write boards with their columns, cards and subtasks to a snapshot file.
The format follows the extension (.json, otherwise YAML). Use - for stdout.

Every board is exported unless --board is given.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var ids []types.ID
		if boardRef != "" {
			ids = []types.ID{currentBoard().ID}
		}
		snap := boardfile.Export(manager, ids, time.Now())

		if args[0] == "-" {
			format := boardfile.FormatYAML
			if jsonOutput {
				format = boardfile.FormatJSON
			}
			if err := boardfile.Write(os.Stdout, snap, format); err != nil {
				FatalError("%v", err)
			}
			return
		}
		if err := boardfile.WriteFile(args[0], snap); err != nil {
			FatalError("%v", err)
		}
		boards, cols, cards, subs := snap.Counts()
		if jsonOutput {
			outputJSON(map[string]any{"path": args[0], "boards": boards, "columns": cols, "cards": cards, "subtasks": subs})
			return
		}
		fmt.Printf("%s Exported %d board(s), %d column(s), %d card(s), %d subtask(s) to %s\n",
			ui.RenderPass("✓"), boards, cols, cards, subs, args[0])
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "data",
	Short:   "Create boards from a snapshot",
	Long: `Create every board of a snapshot as new boards. IDs in the file only
connect dependencies; the store assigns new ones.

Older snapshots whose dependencies are bare titles, or use target_id and
required_status, are accepted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		snap, err := boardfile.ReadFile(args[0])
		if err != nil {
			FatalError("%v", err)
		}
		res, err := boardfile.Import(manager, snap)
		if err != nil {
			FatalError("%v", err)
		}
		settle()
		for _, w := range res.Warnings {
			WarnError("%s", w)
		}
		if jsonOutput {
			boards := make([]*types.Board, 0, len(res.Boards))
			for _, b := range res.Boards {
				if saved, ok := manager.Board(savedID(b.ID)); ok {
					boards = append(boards, saved)
				}
			}
			outputJSON(map[string]any{"boards": boards, "warnings": res.Warnings})
			return
		}
		for _, b := range res.Boards {
			fmt.Printf("%s Imported board %s (%s)\n", ui.RenderPass("✓"), b.Title, savedID(b.ID))
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}
