package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/steveyegge/kanbeads/internal/notify"
	"github.com/steveyegge/kanbeads/internal/reconcile"
	"github.com/steveyegge/kanbeads/internal/types"
)

// currentBoard resolves --board (or the board config key) by ID or title.
// Without one, the only board is used.
func currentBoard() *types.Board {
	boards := manager.Boards()
	if boardRef == "" {
		switch len(boards) {
		case 0:
			FatalErrorWithHint("no boards", "Run 'kb board init <title>' to create one")
		case 1:
			return boards[0]
		}
		titles := make([]string, len(boards))
		for i, b := range boards {
			titles[i] = b.Title
		}
		FatalErrorWithHint(fmt.Sprintf("%d boards exist: %s", len(boards), strings.Join(titles, ", ")),
			"Pass --board <id|title> or set it with 'kb config set board <title>'")
	}
	for _, b := range boards {
		if b.ID.String() == boardRef || strings.EqualFold(b.Title, boardRef) {
			return b
		}
	}
	FatalError("board %q not found", boardRef)
	return nil
}

func mustCard(ref string) *types.Card {
	c, err := manager.ResolveCard(ref)
	if err != nil {
		if errors.Is(err, reconcile.ErrNotFound) {
			FatalErrorWithHint(err.Error(), "Use 'kb board show' to list cards")
		}
		FatalError("%v", err)
	}
	return c
}

func mustColumn(boardID types.ID, ref string) *types.Column {
	col, err := manager.ResolveColumn(boardID, ref)
	if err != nil {
		FatalError("%v", err)
	}
	return col
}

// settle waits for queued writes and exits with an error when any of them
// was not saved.
func settle() {
	manager.Wait()
	failed := recorder.OfType(notify.TypeMutationFailed)
	if len(failed) == 0 {
		return
	}
	for _, n := range failed {
		fmt.Fprintf(os.Stderr, "Error: %s\n", n.Summary())
	}
	exit(1)
}

// savedID returns the ID the store assigned to a temporary ID, once settle
// has run. Other IDs are returned unchanged.
func savedID(id types.ID) types.ID {
	if !id.IsTemp() {
		return id
	}
	for _, n := range recorder.OfType(notify.TypeReconciled) {
		if n.TempID == id {
			return n.EntityID
		}
	}
	return id
}
