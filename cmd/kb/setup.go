package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/kanbeads/internal/config"
	"github.com/steveyegge/kanbeads/internal/ui"
)

var initCmd = &cobra.Command{
	Use:         "init",
	GroupID:     "setup",
	Short:       "Initialize kb in the current directory",
	Long:        `Create .kanbeads/ with a commented config.yaml and an empty templates/ directory.`,
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		wd, err := os.Getwd()
		if err != nil {
			FatalError("%v", err)
		}
		path, err := config.InitProjectDir(wd)
		if err != nil {
			FatalError("%v", err)
		}
		if err := config.Initialize(); err != nil {
			WarnError("failed to reload config: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"config": path})
			return
		}
		fmt.Printf("%s Initialized kb in %s\n", ui.RenderPass("✓"), config.DirName)
		fmt.Printf("  Config: %s\n", path)
		fmt.Printf("\nNext: kb board init \"My board\" --template kanban\n")
	},
}

var configCmd = &cobra.Command{
	Use:         "config",
	GroupID:     "setup",
	Short:       "Manage configuration settings",
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	Long: `Manage configuration settings.

Settings are read from .kanbeads/config.yaml (searched upward from the
working directory), then ~/.config/kb/config.yaml. Environment variables
override both: KB_REMOTE_BACKEND sets remote.backend.

Examples:
  kb config set remote.backend redis
  kb config set remote.url redis://localhost:6379/0
  kb config set workflow.aliases.done "done,concluído,shipped"
  kb config get workflow.locale
  kb config list`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the project config.yaml",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		if err := config.SetYamlConfig(args[0], args[1]); err != nil {
			FatalError("setting config: %v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"key": args[0], "value": args[1]})
			return
		}
		fmt.Printf("Set %s = %s\n", args[0], args[1])
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a key",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		value := configValue(args[0])
		if jsonOutput {
			outputJSON(map[string]string{"key": args[0], "value": value})
			return
		}
		fmt.Println(value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every key with its effective value",
	Run: func(_ *cobra.Command, _ []string) {
		keys := make([]string, 0, len(config.Keys)+4)
		for _, k := range config.Keys {
			keys = append(keys, k.Key)
		}
		for _, status := range []string{"not_started", "in_progress", "in_review", "done"} {
			keys = append(keys, config.KeyWorkflowAliases+"."+status)
		}

		values := make(map[string]string, len(keys))
		for _, k := range keys {
			values[k] = configValue(k)
		}
		if jsonOutput {
			outputJSON(values)
			return
		}
		if used := config.ConfigFileUsed(); used != "" {
			fmt.Println(ui.RenderMuted("# " + used))
		}
		for _, k := range keys {
			fmt.Printf("%-28s %s\n", k, values[k])
		}
	},
}

func configValue(key string) string {
	if strings.HasPrefix(key, config.KeyWorkflowAliases+".") {
		return strings.Join(config.GetStringSlice(key), ", ")
	}
	return config.GetString(key)
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			outputJSON(map[string]string{"version": Version})
			return
		}
		fmt.Printf("kb version %s\n", Version)
	},
}

func init() {
	configCmd.AddCommand(configSetCmd, configGetCmd, configListCmd)
	rootCmd.AddCommand(initCmd, configCmd, versionCmd)
}
