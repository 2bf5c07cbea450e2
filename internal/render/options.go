// Package render turns model replies into styled terminal output.
package render

import "github.com/diogo/chatclient/internal/config"

// Options configures the markdown renderer behavior.
type Options struct {
	// Width defines the maximum output width (default: 80)
	Width int

	// Style is a built-in style name or a path to a glamour JSON style
	Style string

	EnableEmoji      bool
	PreserveNewLines bool
	TableWrap        bool
	InlineTableLinks bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return OptionsFromMarkdown(config.DefaultMarkdownConfig())
}

// OptionsFromMarkdown converts the markdown section of the config file
func OptionsFromMarkdown(md config.MarkdownConfig) Options {
	opts := Options{
		Width:            80,
		Style:            md.Style,
		EnableEmoji:      md.EnableEmoji,
		PreserveNewLines: md.PreserveNewLines,
		TableWrap:        md.TableWrap,
		InlineTableLinks: md.InlineTableLinks,
	}
	if opts.Style == "" {
		opts.Style = ThemeDark
	}
	return opts
}

// WithWidth returns Options with the specified width.
func (o Options) WithWidth(width int) Options {
	if width > 0 {
		o.Width = width
	}
	return o
}

// WithStyle returns Options with the specified style.
func (o Options) WithStyle(style string) Options {
	if style != "" {
		o.Style = style
	}
	return o
}

// WithEmoji returns Options with emoji support enabled/disabled.
func (o Options) WithEmoji(enabled bool) Options {
	o.EnableEmoji = enabled
	return o
}
