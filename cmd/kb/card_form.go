package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/steveyegge/kanbeads/internal/timeparsing"
	"github.com/steveyegge/kanbeads/internal/types"
)

// runCardForm fills in using an interactive form. Values already in in are
// the form's defaults.
func runCardForm(in *cardInput, columns []*types.Column) error {
	columnOptions := make([]huh.Option[string], 0, len(columns))
	for _, c := range columns {
		columnOptions = append(columnOptions, huh.NewOption(c.Name, c.ID.String()))
	}
	if in.Column == "" && len(columns) > 0 {
		in.Column = columns[0].ID.String()
	}

	priorityOptions := []huh.Option[string]{
		huh.NewOption("Critical", "critical"),
		huh.NewOption("High", "high"),
		huh.NewOption("Medium (default)", "medium"),
		huh.NewOption("Low", "low"),
	}
	if in.Priority == "" {
		in.Priority = "medium"
	}
	depsInput := strings.Join(in.DependsOn, ", ")
	confirmed := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description("What needs doing (required)").
				Value(&in.Title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					if len(s) > 500 {
						return fmt.Errorf("title must be 500 characters or less")
					}
					return nil
				}),

			huh.NewText().
				Title("Description").
				Description("Markdown is rendered by 'kb card show'").
				CharLimit(5000).
				Value(&in.Description),

			huh.NewSelect[string]().
				Title("Column").
				Options(columnOptions...).
				Value(&in.Column),

			huh.NewSelect[string]().
				Title("Priority").
				Options(priorityOptions...).
				Value(&in.Priority),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Due").
				Description("Optional: +2d, 2026-05-01, next friday").
				Value(&in.Due).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					_, err := timeparsing.ParseDue(s, time.Now())
					return err
				}),

			huh.NewInput().
				Title("Depends on").
				Description("Comma-separated card IDs or titles (optional)").
				Value(&depsInput),

			huh.NewConfirm().
				Title("Create this card?").
				Affirmative("Create").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(os.Stderr, "Card creation cancelled.")
			exit(0)
		}
		return fmt.Errorf("form error: %w", err)
	}
	if !confirmed {
		fmt.Fprintln(os.Stderr, "Card creation cancelled.")
		exit(0)
	}

	in.DependsOn = nil
	for _, d := range strings.Split(depsInput, ",") {
		if d = strings.TrimSpace(d); d != "" {
			in.DependsOn = append(in.DependsOn, d)
		}
	}
	return nil
}
