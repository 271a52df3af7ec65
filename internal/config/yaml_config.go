package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// projectConfigTemplate seeds .kanbeads/config.yaml on kb init.
const projectConfigTemplate = `# kb configuration. Every key can also be set with a KB_ environment
# variable, e.g. KB_REMOTE_BACKEND=redis.

# board: Sprint
# remote:
#   backend: file
#   path: .kanbeads/store.json
#   url: redis://localhost:6379/0
# sync:
#   rollback-on-failure: true
# workflow:
#   locale: pt-BR
#   aliases:
#     done: [done, concluído, shipped]
`

// InitProjectDir creates dir/.kanbeads with a starter config.yaml. An
// existing config is left alone. It returns the config path.
func InitProjectDir(dir string) (string, error) {
	kbDir := filepath.Join(dir, DirName)
	if err := os.MkdirAll(filepath.Join(kbDir, "templates"), 0750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", kbDir, err)
	}
	configPath := filepath.Join(kbDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}
	if err := os.WriteFile(configPath, []byte(projectConfigTemplate), 0600); err != nil {
		return "", fmt.Errorf("failed to write config.yaml: %w", err)
	}
	return configPath, nil
}

// ProjectDir returns the nearest .kanbeads directory at or above the
// working directory.
func ProjectDir() (string, error) {
	path, err := findProjectConfigYaml()
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

// SetYamlConfig sets a configuration value in the project's config.yaml,
// creating nested mappings as needed. Comments elsewhere in the file are
// kept. Keys under workflow.aliases take a comma-separated list.
func SetYamlConfig(key, value string) error {
	if err := ValidateKey(key, value); err != nil {
		return err
	}
	configPath, err := findProjectConfigYaml()
	if err != nil {
		return err
	}

	content, err := os.ReadFile(configPath) //nolint:gosec // configPath is from findProjectConfigYaml
	if err != nil {
		return fmt.Errorf("failed to read config.yaml: %w", err)
	}
	newContent, err := updateYamlKey(content, key, value)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, newContent, 0600); err != nil { //nolint:gosec // configPath is validated
		return fmt.Errorf("failed to write config.yaml: %w", err)
	}
	return nil
}

// GetYamlConfig gets a configuration value as viper sees it.
// Returns empty string if key is not found.
func GetYamlConfig(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// findProjectConfigYaml finds the project's .kanbeads/config.yaml file.
func findProjectConfigYaml() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		configPath := filepath.Join(dir, DirName, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", fmt.Errorf("no %s/config.yaml found (run 'kb init' first)", DirName)
}

// updateYamlKey sets the dotted key in a YAML document and re-encodes it.
func updateYamlKey(content []byte, key, value string) ([]byte, error) {
	var doc yaml.Node
	if len(bytes.TrimSpace(content)) > 0 {
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		// A file holding only comments parses to an empty document; keep
		// the comments on the new root mapping.
		root := &yaml.Node{Kind: yaml.MappingNode, HeadComment: doc.HeadComment}
		doc.HeadComment = ""
		doc.Content = []*yaml.Node{root}
	}

	var valueNode *yaml.Node
	if strings.HasPrefix(key, KeyWorkflowAliases+".") {
		valueNode = &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				valueNode.Content = append(valueNode.Content, scalarNode(name))
			}
		}
	} else {
		valueNode = scalarNode(value)
	}
	setNested(doc.Content[0], strings.Split(key, "."), valueNode)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to encode config.yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// setNested walks or creates mappings along path and sets the last
// segment to value.
func setNested(m *yaml.Node, path []string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value != path[0] {
			continue
		}
		if len(path) == 1 {
			m.Content[i+1] = value
			return
		}
		child := m.Content[i+1]
		if child.Kind != yaml.MappingNode {
			child = &yaml.Node{Kind: yaml.MappingNode}
			m.Content[i+1] = child
		}
		setNested(child, path[1:], value)
		return
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: path[0]}
	if len(path) == 1 {
		m.Content = append(m.Content, keyNode, value)
		return
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	m.Content = append(m.Content, keyNode, child)
	setNested(child, path[1:], value)
}

// scalarNode tags a value as bool, int or string so it round-trips typed.
func scalarNode(value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: value, Tag: "!!str"}
	lower := strings.ToLower(value)
	switch {
	case lower == "true" || lower == "false":
		n.Tag, n.Value = "!!bool", lower
	case isNumeric(value):
		n.Tag = "!!int"
	}
	return n
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
