package reconcile

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/kanbeads/internal/deps"
	"github.com/steveyegge/kanbeads/internal/types"
	"github.com/steveyegge/kanbeads/internal/workspace"
)

// LoadBoards replaces the board list with the store's. Boards still being
// created are kept.
func (m *Manager) LoadBoards(ctx context.Context) error {
	var boards []*types.Board
	err := m.retry(ctx, func(ctx context.Context) error {
		var err error
		boards, err = m.remote.Boards.ListFor(ctx, types.ID{})
		return err
	})
	if err != nil {
		return fmt.Errorf("load boards: %w", err)
	}
	m.mu.Lock()
	m.ws.ReplaceBoards(boards)
	m.mu.Unlock()
	return nil
}

// Load replaces a board's columns, cards and subtasks with the store's.
// Entities still being created survive the swap.
func (m *Manager) Load(ctx context.Context, boardID types.ID) error {
	if boardID.IsTemp() {
		return nil
	}
	var contents workspace.BoardContents

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.retry(gctx, func(ctx context.Context) error {
			var err error
			contents.Columns, err = m.remote.Columns.ListFor(ctx, boardID)
			return err
		})
	})
	g.Go(func() error {
		return m.retry(gctx, func(ctx context.Context) error {
			var err error
			contents.Cards, err = m.remote.Cards.ListFor(ctx, boardID)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load board %s: %w", boardID, err)
	}

	contents.Subtasks = make(map[types.ID][]*types.Subtask, len(contents.Cards))
	var mu sync.Mutex
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.LoadConcurrency)
	for _, card := range contents.Cards {
		g.Go(func() error {
			var subs []*types.Subtask
			err := m.retry(gctx, func(ctx context.Context) error {
				var err error
				subs, err = m.remote.Subtasks.ListFor(ctx, card.ID)
				return err
			})
			if err != nil {
				return err
			}
			mu.Lock()
			contents.Subtasks[card.ID] = subs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load board %s subtasks: %w", boardID, err)
	}

	m.mu.Lock()
	if _, ok := m.ws.Board(boardID); !ok {
		m.mu.Unlock()
		return fmt.Errorf("load board %s: %w", boardID, ErrNotFound)
	}
	skipped := m.ws.ReplaceBoardContents(boardID, contents)
	cycles := deps.DetectCycles(m.ws.Cards(boardID))
	m.mu.Unlock()

	for _, c := range skipped {
		m.log.Warn("card references an unknown column", zap.Stringer("card", c.ID), zap.Stringer("column", c.ColumnID))
	}
	for _, cycle := range cycles {
		titles := make([]string, len(cycle))
		for i, c := range cycle {
			titles[i] = c.Title
		}
		m.log.Warn("dependency cycle in stored data", zap.Strings("cards", titles))
	}
	m.log.Debug("board loaded",
		zap.Stringer("board", boardID),
		zap.Int("columns", len(contents.Columns)),
		zap.Int("cards", len(contents.Cards)))
	return nil
}

// LoadAll loads the board list and then every board.
func (m *Manager) LoadAll(ctx context.Context) error {
	if err := m.LoadBoards(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	var ids []types.ID
	for _, b := range m.ws.Boards() {
		if !b.ID.IsTemp() {
			ids = append(ids, b.ID)
		}
	}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.LoadConcurrency)
	for _, id := range ids {
		g.Go(func() error { return m.Load(gctx, id) })
	}
	return g.Wait()
}
