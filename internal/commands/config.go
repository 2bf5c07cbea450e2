package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/chatclient/internal/config"
	"github.com/diogo/chatclient/internal/render"
)

// NewConfigCmd creates the config command and its subcommands
func NewConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change the settings stored in ~/.chatclient/config.json.

Without a subcommand the current settings are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(deps)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(deps)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(deps.Stdout, path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: `Change one setting and save it.

Keys:
  ` + strings.Join(config.Keys(), "\n  ") + `

Markdown styles: ` + strings.Join(render.ThemeNames(), ", ") + ` or a glamour JSON file
TUI themes: ` + strings.Join(render.TUIThemeNames(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfig(deps, args[0], args[1])
		},
	})

	return cmd
}

func showConfig(deps *Dependencies) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Fprintln(deps.Stdout, string(data))
	return nil
}

func setConfig(deps *Dependencies, key, value string) error {
	// A broken file is not overwritten
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	switch strings.ToLower(key) {
	case "markdown.style":
		if err := render.ValidateStyle(value); err != nil {
			return err
		}
	case "tui_theme":
		if _, ok := render.GetTUIThemeByName(value); !ok {
			return fmt.Errorf("unknown theme %q (available: %s)", value, strings.Join(render.TUIThemeNames(), ", "))
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := config.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(deps.Stderr, "✓ %s = %s\n", strings.ToLower(key), value)
	return nil
}
