package render

import (
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// TUITheme is the color scheme of the chat screen
type TUITheme struct {
	Name        string
	Description string

	Border lipgloss.Color

	// Speaker colors
	User  lipgloss.Color
	Model lipgloss.Color

	// Accent marks the in-progress stream and the spinner
	Accent  lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color
}

// DefaultTUITheme is used when the configured theme is unknown
const DefaultTUITheme = "tokyonight"

var tuiThemes = map[string]TUITheme{
	"tokyonight": {
		Name:        "tokyonight",
		Description: "Tokyo Night, dark with blue accents",
		Border:      lipgloss.Color("#414868"),
		User:        lipgloss.Color("#9ece6a"),
		Model:       lipgloss.Color("#7aa2f7"),
		Accent:      lipgloss.Color("#bb9af7"),
		Warning:     lipgloss.Color("#e0af68"),
		Error:       lipgloss.Color("#f7768e"),
		Text:        lipgloss.Color("#c0caf5"),
		TextDim:     lipgloss.Color("#565f89"),
		TextMute:    lipgloss.Color("#3b4261"),
	},
	"catppuccin": {
		Name:        "catppuccin",
		Description: "Catppuccin Mocha, warm pastels",
		Border:      lipgloss.Color("#45475a"),
		User:        lipgloss.Color("#a6e3a1"),
		Model:       lipgloss.Color("#89b4fa"),
		Accent:      lipgloss.Color("#cba6f7"),
		Warning:     lipgloss.Color("#f9e2af"),
		Error:       lipgloss.Color("#f38ba8"),
		Text:        lipgloss.Color("#cdd6f4"),
		TextDim:     lipgloss.Color("#6c7086"),
		TextMute:    lipgloss.Color("#45475a"),
	},
	"nord": {
		Name:        "nord",
		Description: "Nord, cool arctic tones",
		Border:      lipgloss.Color("#4c566a"),
		User:        lipgloss.Color("#a3be8c"),
		Model:       lipgloss.Color("#88c0d0"),
		Accent:      lipgloss.Color("#b48ead"),
		Warning:     lipgloss.Color("#ebcb8b"),
		Error:       lipgloss.Color("#bf616a"),
		Text:        lipgloss.Color("#eceff4"),
		TextDim:     lipgloss.Color("#7b88a1"),
		TextMute:    lipgloss.Color("#4c566a"),
	},
	"dracula": {
		Name:        "dracula",
		Description: "Dracula, vibrant dark",
		Border:      lipgloss.Color("#6272a4"),
		User:        lipgloss.Color("#50fa7b"),
		Model:       lipgloss.Color("#8be9fd"),
		Accent:      lipgloss.Color("#ff79c6"),
		Warning:     lipgloss.Color("#f1fa8c"),
		Error:       lipgloss.Color("#ff5555"),
		Text:        lipgloss.Color("#f8f8f2"),
		TextDim:     lipgloss.Color("#6272a4"),
		TextMute:    lipgloss.Color("#44475a"),
	},
}

var (
	tuiThemeMu      sync.RWMutex
	currentTUITheme = tuiThemes[DefaultTUITheme]
)

// GetTUITheme returns the currently active TUI theme
func GetTUITheme() TUITheme {
	tuiThemeMu.RLock()
	defer tuiThemeMu.RUnlock()
	return currentTUITheme
}

// SetTUITheme activates the named theme. Unknown names leave the current
// theme in place and return false.
func SetTUITheme(name string) bool {
	theme, ok := GetTUIThemeByName(name)
	if !ok {
		return false
	}
	tuiThemeMu.Lock()
	currentTUITheme = theme
	tuiThemeMu.Unlock()
	return true
}

// GetTUIThemeByName returns a TUI theme by its name
func GetTUIThemeByName(name string) (TUITheme, bool) {
	theme, ok := tuiThemes[name]
	return theme, ok
}

// TUIThemeNames returns the theme names in sorted order
func TUIThemeNames() []string {
	names := make([]string, 0, len(tuiThemes))
	for name := range tuiThemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
