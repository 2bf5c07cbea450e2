package render

import (
	"os"

	"github.com/diogo/chatclient/internal/config"
)

// EnvStyle overrides the markdown style from the config file
const EnvStyle = "GLAMOUR_STYLE"

// LoadOptions builds render options from cfg.
// GLAMOUR_STYLE takes precedence over the config file.
func LoadOptions(cfg config.Config) Options {
	opts := OptionsFromMarkdown(cfg.Markdown)

	if style := os.Getenv(EnvStyle); style != "" {
		opts.Style = style
	}

	return opts
}

// LoadOptionsWithWidth loads options from cfg with a specific width.
func LoadOptionsWithWidth(cfg config.Config, width int) Options {
	return LoadOptions(cfg).WithWidth(width)
}
