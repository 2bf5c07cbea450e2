package render

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour/styles"
)

// Markdown style names accepted in the config file
const (
	ThemeDark       = "dark"
	ThemeLight      = "light"
	ThemeTokyoNight = "tokyonight"
)

// styleAliases maps config spellings to glamour style names
var styleAliases = map[string]string{
	ThemeTokyoNight: styles.TokyoNightStyle,
	"plain":         styles.NoTTYStyle,
}

// resolveStyle returns the glamour style name or path for style
func resolveStyle(style string) string {
	key := strings.ToLower(strings.TrimSpace(style))
	if alias, ok := styleAliases[key]; ok {
		return alias
	}
	if _, ok := styles.DefaultStyles[key]; ok {
		return key
	}
	return style
}

// IsBuiltinStyle returns true if the style ships with glamour, or is one of
// our aliases for such a style.
func IsBuiltinStyle(style string) bool {
	_, ok := styles.DefaultStyles[resolveStyle(style)]
	return ok
}

// ValidateStyle accepts a built-in style or a readable JSON style file
func ValidateStyle(style string) error {
	if IsBuiltinStyle(style) {
		return nil
	}
	info, err := os.Stat(style)
	if err != nil {
		return fmt.Errorf("unknown markdown style %q (built-in: %s)", style, strings.Join(ThemeNames(), ", "))
	}
	if info.IsDir() {
		return fmt.Errorf("markdown style %q is a directory", style)
	}
	return nil
}

// ThemeNames returns the built-in style names, aliases included.
func ThemeNames() []string {
	names := make([]string, 0, len(styles.DefaultStyles)+len(styleAliases))
	for name := range styles.DefaultStyles {
		names = append(names, name)
	}
	for alias := range styleAliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}
