package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apierrors "github.com/diogo/chatclient/internal/errors"
	"github.com/diogo/chatclient/internal/render"
)

// Color variables (updated from theme)
var (
	colorBorder   lipgloss.Color
	colorUser     lipgloss.Color
	colorModel    lipgloss.Color
	colorAccent   lipgloss.Color
	colorWarning  lipgloss.Color
	colorError    lipgloss.Color
	colorText     lipgloss.Color
	colorTextDim  lipgloss.Color
	colorTextMute lipgloss.Color
)

// Style variables (rebuilt when theme changes)
var (
	headerStyle    lipgloss.Style
	titleStyle     lipgloss.Style
	subtitleStyle  lipgloss.Style
	hintStyle      lipgloss.Style
	toggleOnStyle  lipgloss.Style
	toggleOffStyle lipgloss.Style

	messagesAreaStyle  lipgloss.Style
	userBubbleStyle    lipgloss.Style
	userLabelStyle     lipgloss.Style
	modelBubbleStyle   lipgloss.Style
	modelLabelStyle    lipgloss.Style
	pendingBubbleStyle lipgloss.Style

	inputPanelStyle lipgloss.Style
	inputLabelStyle lipgloss.Style
	loadingStyle    lipgloss.Style

	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style
	noticeStyle     lipgloss.Style
	errorStyle      lipgloss.Style

	welcomeStyle      lipgloss.Style
	welcomeTitleStyle lipgloss.Style
	welcomeIconStyle  lipgloss.Style
)

// Gradient colors for the wait animation (fixed colors)
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"),
	lipgloss.Color("#feca57"),
	lipgloss.Color("#48dbfb"),
	lipgloss.Color("#ff9ff3"),
	lipgloss.Color("#54a0ff"),
	lipgloss.Color("#5f27cd"),
	lipgloss.Color("#00d2d3"),
	lipgloss.Color("#1dd1a1"),
}

func init() {
	UpdateTheme()
}

// ApplyTheme activates the named theme and rebuilds the styles.
// Unknown names fall back to the default theme and return false.
func ApplyTheme(name string) bool {
	ok := render.SetTUITheme(name)
	if !ok {
		render.SetTUITheme(render.DefaultTUITheme)
	}
	UpdateTheme()
	return ok
}

// UpdateTheme refreshes all styles based on the current TUI theme
func UpdateTheme() {
	theme := render.GetTUITheme()

	colorBorder = theme.Border
	colorUser = theme.User
	colorModel = theme.Model
	colorAccent = theme.Accent
	colorWarning = theme.Warning
	colorError = theme.Error
	colorText = theme.Text
	colorTextDim = theme.TextDim
	colorTextMute = theme.TextMute

	rebuildStyles()
}

func rebuildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2).
		MarginBottom(1)

	titleStyle = lipgloss.NewStyle().
		Foreground(colorModel).
		Bold(true)

	subtitleStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	hintStyle = lipgloss.NewStyle().
		Foreground(colorTextMute).
		Italic(true)

	toggleOnStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	toggleOffStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	messagesAreaStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(1)

	userBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorUser).
		Padding(0, 1).
		MarginLeft(4)

	userLabelStyle = lipgloss.NewStyle().
		Foreground(colorUser).
		Bold(true).
		MarginLeft(4)

	modelBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorModel).
		Foreground(colorText).
		Padding(0, 1).
		MarginRight(4)

	modelLabelStyle = lipgloss.NewStyle().
		Foreground(colorModel).
		Bold(true)

	// Square frame while text is still arriving
	pendingBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorAccent).
		Foreground(colorText).
		Padding(0, 1).
		MarginRight(4)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		MarginTop(1)

	inputLabelStyle = lipgloss.NewStyle().
		Foreground(colorUser).
		Bold(true).
		MarginRight(1)

	loadingStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	statusBarStyle = lipgloss.NewStyle().
		Foreground(colorTextMute).
		MarginTop(1)

	statusKeyStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Bold(true)

	statusDescStyle = lipgloss.NewStyle().
		Foreground(colorTextMute)

	noticeStyle = lipgloss.NewStyle().
		Foreground(colorWarning).
		Italic(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true)

	welcomeStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Align(lipgloss.Center)

	welcomeTitleStyle = lipgloss.NewStyle().
		Foreground(colorModel).
		Bold(true).
		Align(lipgloss.Center)

	welcomeIconStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Align(lipgloss.Center).
		MarginBottom(1)
}

// FormatError describes a failed request for the status area. The
// transcript only ever shows the fallback reply; this is where the detail
// goes.
func FormatError(err error, host string) string {
	if err == nil {
		return ""
	}

	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim).PaddingLeft(2)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("⚠ Request failed: %v", err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(fmt.Sprintf("HTTP Status: %d", status)))
	}
	if body := apierrors.GetResponseBody(err); body != "" {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(strings.ReplaceAll(strings.TrimSpace(body), "\n", "\n  ")))
	}

	hint := lipgloss.NewStyle().Foreground(colorModel).PaddingLeft(2)
	sb.WriteString("\n")
	if apierrors.GetHTTPStatus(err) == 0 {
		sb.WriteString(hint.Render(fmt.Sprintf("Is the chat server running at %s?", host)))
	} else {
		sb.WriteString(hint.Render("The server rejected the request, see its logs"))
	}

	return sb.String()
}
