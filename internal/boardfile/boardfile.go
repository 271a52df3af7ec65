// Package boardfile reads and writes board snapshots as YAML or JSON.
//
// A snapshot nests columns under boards, cards under columns and subtasks
// under cards, in position order. Dependencies may use any of the shapes
// types.Dependency decodes, so hand-written files can list bare titles.
package boardfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

// Version is the snapshot format written by this package.
const Version = 1

// Format selects the encoding of a snapshot file.
type Format string

// Supported formats
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the format from a file extension; anything but .json is
// treated as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Snapshot is the root of a board file.
type Snapshot struct {
	Version    int       `json:"version" yaml:"version"`
	ExportedAt time.Time `json:"exportedAt,omitzero" yaml:"exportedAt,omitempty"`
	Boards     []Board   `json:"boards" yaml:"boards"`
}

// Board is a board with its columns.
type Board struct {
	types.Board `yaml:",inline"`
	Columns     []Column `json:"columns" yaml:"columns"`
}

// Column is a column with its cards.
type Column struct {
	types.Column `yaml:",inline"`
	Cards        []Card `json:"cards,omitempty" yaml:"cards,omitempty"`
}

// Card is a card with its subtasks.
type Card struct {
	types.Card `yaml:",inline"`
	Subtasks   []types.Subtask `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
}

// Counts tallies the entities of a snapshot.
func (s *Snapshot) Counts() (boards, columns, cards, subtasks int) {
	for _, b := range s.Boards {
		boards++
		for _, c := range b.Columns {
			columns++
			for _, card := range c.Cards {
				cards++
				subtasks += len(card.Subtasks)
			}
		}
	}
	return boards, columns, cards, subtasks
}

// Write encodes s to w.
func Write(w io.Writer, s *Snapshot, format Format) error {
	if format == FormatJSON {
		data, err := remote.MarshalIndent(s)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}

// Read decodes a snapshot from r and validates it.
func Read(r io.Reader, format Format) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if format == FormatJSON {
		err = remote.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteFile writes s to path in the format its extension implies. The file
// is replaced atomically.
func WriteFile(path string, s *Snapshot) error {
	var buf bytes.Buffer
	if err := Write(&buf, s, FormatFor(path)); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".kb-snapshot-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile reads a snapshot from path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path) //nolint:gosec // G304: user-specified snapshot path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	s, err := Read(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks the version and every entity.
func (s *Snapshot) Validate() error {
	if s.Version > Version {
		return fmt.Errorf("snapshot version %d is newer than supported version %d", s.Version, Version)
	}
	for _, b := range s.Boards {
		if err := b.Board.Validate(); err != nil {
			return fmt.Errorf("board %q: %w", b.Title, err)
		}
		for _, c := range b.Columns {
			if err := c.Column.Validate(); err != nil {
				return fmt.Errorf("board %q: column %q: %w", b.Title, c.Name, err)
			}
			for _, card := range c.Cards {
				if err := card.Card.Validate(); err != nil {
					return fmt.Errorf("board %q: card %q: %w", b.Title, card.Title, err)
				}
				for _, st := range card.Subtasks {
					if err := st.Validate(); err != nil {
						return fmt.Errorf("board %q: card %q: subtask %q: %w", b.Title, card.Title, st.Title, err)
					}
				}
			}
		}
	}
	return nil
}
