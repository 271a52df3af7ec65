// Package templates provides board templates written in TOML.
//
// A template names the columns of a new board and, optionally, starter
// cards with subtasks and dependencies. Lookup chain for a name (highest
// to lowest priority):
//  1. Explicit path (from --template-file)
//  2. .kanbeads/templates/<name>.toml (project-level, version-controlled)
//  3. ~/.config/kb/templates/<name>.toml (user-level)
//  4. Built-in templates compiled into the binary
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/steveyegge/kanbeads/internal/debug"
	"github.com/steveyegge/kanbeads/internal/types"
)

//go:embed builtin/*.toml
var builtin embed.FS

// DefaultName is the template used when none is given.
const DefaultName = "kanban"

// ErrNotFound is returned when no template of the name exists.
var ErrNotFound = errors.New("template not found")

// Template describes a board to create.
type Template struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Columns     []Column `toml:"columns"`
	Cards       []Card   `toml:"cards"`

	// Source is where the template was loaded from.
	Source string `toml:"-"`
}

// Column is a template column.
type Column struct {
	Name string `toml:"name"`
}

// Card is a template card. Column and DependsOn refer to names within the
// same template; Due accepts any timeparsing expression.
type Card struct {
	Title       string   `toml:"title"`
	Description string   `toml:"description"`
	Column      string   `toml:"column"`
	Priority    string   `toml:"priority"`
	Due         string   `toml:"due"`
	DependsOn   []string `toml:"depends_on"`
	Subtasks    []string `toml:"subtasks"`
}

// LoadOptions configures template resolution.
type LoadOptions struct {
	// ExplicitPath overrides the lookup chain entirely.
	ExplicitPath string

	// ProjectDir is the project .kanbeads/ directory.
	ProjectDir string
}

// Parse decodes and validates a template.
func Parse(data []byte) (*Template, error) {
	var t Template
	md, err := toml.Decode(string(data), &t)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parse template: unknown keys %s", strings.Join(keys, ", "))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks names are present and references resolve.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template: name is required")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("template %s: at least one column is required", t.Name)
	}
	cols := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("template %s: column %d has no name", t.Name, i)
		}
		if cols[name] {
			return fmt.Errorf("template %s: column %q listed twice", t.Name, name)
		}
		cols[name] = true
	}
	cards := make(map[string]bool, len(t.Cards))
	for i, c := range t.Cards {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			return fmt.Errorf("template %s: card %d has no title", t.Name, i)
		}
		if cards[title] {
			return fmt.Errorf("template %s: card %q listed twice", t.Name, title)
		}
		if c.Column != "" && !cols[c.Column] {
			return fmt.Errorf("template %s: card %q: unknown column %q", t.Name, title, c.Column)
		}
		if c.Priority != "" {
			if _, err := types.ParsePriority(c.Priority); err != nil {
				return fmt.Errorf("template %s: card %q: %w", t.Name, title, err)
			}
		}
		// Dependencies may only point backwards, which also rules out cycles.
		for _, dep := range c.DependsOn {
			if !cards[dep] {
				return fmt.Errorf("template %s: card %q depends on %q, which is not listed before it", t.Name, title, dep)
			}
		}
		cards[title] = true
	}
	return nil
}

// Load resolves name through the lookup chain.
func Load(name string, opts LoadOptions) (*Template, error) {
	data, source, err := resolve(name, opts)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	t.Source = source
	debug.Logf("template: loaded %s from %s\n", t.Name, source)
	return t, nil
}

func resolve(name string, opts LoadOptions) ([]byte, string, error) {
	if opts.ExplicitPath != "" {
		content, err := os.ReadFile(opts.ExplicitPath) //nolint:gosec // G304: user-specified template path
		if err != nil {
			return nil, "", fmt.Errorf("explicit template path %s: %w", opts.ExplicitPath, err)
		}
		return content, opts.ExplicitPath, nil
	}
	if name == "" {
		name = DefaultName
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, "", fmt.Errorf("template name %q must not contain a path separator", name)
	}
	file := name + ".toml"

	for _, dir := range searchDirs(opts) {
		path := filepath.Join(dir, file)
		if content, err := os.ReadFile(path); err == nil { //nolint:gosec // G304: template directory path
			return content, path, nil
		}
	}
	content, err := builtin.ReadFile("builtin/" + file)
	if err != nil {
		return nil, "", fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return content, "builtin:" + file, nil
}

func searchDirs(opts LoadOptions) []string {
	var dirs []string
	if opts.ProjectDir != "" {
		dirs = append(dirs, filepath.Join(opts.ProjectDir, "templates"))
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(configDir, "kb", "templates"))
	}
	return dirs
}

// Info summarizes an available template.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// List returns every template reachable by name, sorted. A project or
// user template shadows a built-in of the same name. Files that fail to
// parse are skipped.
func List(opts LoadOptions) []Info {
	seen := make(map[string]bool)
	var out []Info
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		t, err := Load(name, LoadOptions{ProjectDir: opts.ProjectDir})
		if err != nil {
			debug.Logf("template: skipping %s: %v\n", name, err)
			return
		}
		out = append(out, Info{Name: name, Description: t.Description, Source: t.Source})
	}
	for _, dir := range searchDirs(opts) {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.toml"))
		for _, m := range matches {
			add(strings.TrimSuffix(filepath.Base(m), ".toml"))
		}
	}
	entries, _ := fs.ReadDir(builtin, "builtin")
	for _, e := range entries {
		add(strings.TrimSuffix(e.Name(), ".toml"))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
