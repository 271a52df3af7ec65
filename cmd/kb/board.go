package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/kanbeads/internal/config"
	"github.com/steveyegge/kanbeads/internal/templates"
	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/ui"
)

var boardCmd = &cobra.Command{
	Use:     "board",
	GroupID: "boards",
	Short:   "Create, list and reorder boards",
}

var boardInitCmd = &cobra.Command{
	Use:   "init <title>",
	Short: "Create a board from a template",
	Long: `Create a board with the columns and starter cards of a template.

Templates are looked up in .kanbeads/templates, then in the user config
directory, then among the built-ins (kanban, scrum, release).`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("template")
		file, _ := cmd.Flags().GetString("template-file")

		opts := templates.LoadOptions{ExplicitPath: file}
		if dir, err := config.ProjectDir(); err == nil {
			opts.ProjectDir = dir
		}
		tmpl, err := templates.Load(name, opts)
		if err != nil {
			FatalErrorWithHint(err.Error(), "Run 'kb board templates' to list available templates")
		}
		board, err := tmpl.Instantiate(manager, args[0], time.Now())
		if err != nil {
			FatalError("%v", err)
		}
		settle()

		id := savedID(board.ID)
		if jsonOutput {
			b, _ := manager.Board(id)
			outputJSON(b)
			return
		}
		fmt.Printf("%s Created board %s (%s) from template %s\n",
			ui.RenderPass("✓"), ui.RenderAccent(board.Title), id, tmpl.Name)
	},
}

var boardTemplatesCmd = &cobra.Command{
	Use:         "templates",
	Short:       "List board templates",
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		var opts templates.LoadOptions
		if dir, err := config.ProjectDir(); err == nil {
			opts.ProjectDir = dir
		}
		infos := templates.List(opts)
		if jsonOutput {
			outputJSON(infos)
			return
		}
		for _, info := range infos {
			fmt.Printf("%-12s %s %s\n", info.Name, info.Description, ui.RenderMuted("("+info.Source+")"))
		}
	},
}

var boardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List boards",
	Run: func(cmd *cobra.Command, args []string) {
		boards := manager.Boards()
		if jsonOutput {
			outputJSON(boards)
			return
		}
		for _, b := range boards {
			fmt.Printf("%-6s %s %s\n", b.ID, b.Title,
				ui.RenderMuted(fmt.Sprintf("(%d cards)", len(manager.Cards(b.ID)))))
		}
	},
}

// boardView is the JSON shape of kb board show.
type boardView struct {
	Board   *types.Board  `json:"board"`
	Columns []*columnView `json:"columns"`
}

type columnView struct {
	Column *types.Column `json:"column"`
	Status types.Status  `json:"status"`
	Cards  []*types.Card `json:"cards"`
}

var boardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a board's columns and cards",
	Run: func(cmd *cobra.Command, args []string) {
		board := currentBoard()
		model := manager.Authorizer().Model()
		cols := manager.Columns(board.ID)

		view := boardView{Board: board}
		for _, col := range cols {
			view.Columns = append(view.Columns, &columnView{
				Column: col,
				Status: model.StatusForColumn(col.ID, cols),
				Cards:  manager.ColumnCards(col.ID),
			})
		}
		if jsonOutput {
			outputJSON(view)
			return
		}

		unmet := make(map[types.ID]int)
		for _, b := range manager.Blocked(board.ID) {
			unmet[b.Card.ID] = len(b.Unmet)
		}
		fmt.Printf("%s %s\n", ui.RenderAccent(board.Title), ui.RenderMuted(board.ID.String()))
		for _, cv := range view.Columns {
			fmt.Printf("\n%s %s\n", ui.RenderCategory(cv.Column.Name), ui.RenderStatus(cv.Status))
			if len(cv.Cards) == 0 {
				fmt.Println(ui.RenderMuted("  (empty)"))
			}
			for _, c := range cv.Cards {
				line := fmt.Sprintf("  %-6s %s %s", c.ID, ui.RenderPriority(c.Priority), c.Title)
				if n := unmet[c.ID]; n > 0 {
					line += " " + ui.RenderWarn(fmt.Sprintf("[blocked by %d]", n))
				}
				if c.DueDate != nil {
					line += " " + ui.RenderMuted("due "+c.DueDate.Local().Format("2006-01-02"))
				}
				fmt.Println(line)
			}
		}
	},
}

var boardReorderCmd = &cobra.Command{
	Use:   "reorder <board>...",
	Short: "Put boards in the given order",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ids := make([]types.ID, len(args))
		for i, ref := range args {
			ids[i] = boardID(ref)
		}
		if err := manager.ReorderBoards(ids); err != nil {
			FatalError("%v", err)
		}
		settle()
		if !jsonOutput {
			fmt.Printf("%s Reordered %d board(s)\n", ui.RenderPass("✓"), len(ids))
		}
	},
}

var boardDeleteCmd = &cobra.Command{
	Use:   "delete <board>",
	Short: "Delete a board with its columns and cards",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := boardID(args[0])
		if err := manager.DeleteBoard(id); err != nil {
			FatalError("%v", err)
		}
		settle()
		if !jsonOutput {
			fmt.Printf("%s Deleted board %s\n", ui.RenderPass("✓"), id)
		}
	},
}

var columnCmd = &cobra.Command{
	Use:     "column",
	GroupID: "boards",
	Short:   "Manage a board's columns",
}

var columnAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Append a column to the board",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		board := currentBoard()
		col, err := manager.CreateColumn(&types.Column{BoardID: board.ID, Name: args[0]})
		if err != nil {
			FatalError("%v", err)
		}
		settle()
		if !jsonOutput {
			fmt.Printf("%s Added column %s (%s)\n", ui.RenderPass("✓"), col.Name, savedID(col.ID))
		}
	},
}

var columnReorderCmd = &cobra.Command{
	Use:   "reorder <column>...",
	Short: "Put the board's columns in the given order",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		board := currentBoard()
		ids := make([]types.ID, len(args))
		for i, ref := range args {
			ids[i] = mustColumn(board.ID, ref).ID
		}
		if err := manager.ReorderColumns(board.ID, ids); err != nil {
			FatalError("%v", err)
		}
		settle()
		if !jsonOutput {
			fmt.Printf("%s Reordered %d column(s)\n", ui.RenderPass("✓"), len(ids))
		}
	},
}

func boardID(ref string) types.ID {
	for _, b := range manager.Boards() {
		if b.ID.String() == ref || strings.EqualFold(b.Title, ref) {
			return b.ID
		}
	}
	FatalError("board %q not found", ref)
	return types.ID{}
}

func init() {
	boardInitCmd.Flags().String("template", templates.DefaultName, "Template name")
	boardInitCmd.Flags().String("template-file", "", "Load the template from this TOML file")

	boardCmd.AddCommand(boardInitCmd, boardTemplatesCmd, boardListCmd, boardShowCmd, boardReorderCmd, boardDeleteCmd)
	columnCmd.AddCommand(columnAddCmd, columnReorderCmd)
	rootCmd.AddCommand(boardCmd, columnCmd)
}
