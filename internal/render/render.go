package render

import "strings"

// Markdown renders markdown content for terminal display using a pooled
// renderer.
func Markdown(content string, opts Options) (string, error) {
	renderer, release, err := renderers.acquire(opts)
	if err != nil {
		return "", err
	}
	defer release()

	return renderer.Render(content)
}

// MarkdownWithWidth renders with default options and the given width.
func MarkdownWithWidth(content string, width int) (string, error) {
	return Markdown(content, DefaultOptions().WithWidth(width))
}

// MarkdownOrPlain renders content and falls back to the unmodified text
// when the renderer cannot be built or fails. Surrounding blank lines that
// glamour adds are trimmed.
func MarkdownOrPlain(content string, opts Options) string {
	out, err := Markdown(content, opts)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
