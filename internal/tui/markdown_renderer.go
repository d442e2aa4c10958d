package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownMinWrap is the narrowest wrap width descriptions render at; the
// task info box never shrinks below it.
const markdownMinWrap = 24

// markdownRenderer renders task descriptions for the info overlay, lazily
// rebuilding the glamour renderer whenever the wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts a markdown description into ANSI-styled text wrapped to
// the given width. On any renderer failure the raw markdown comes back
// unstyled rather than dropping the description.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := width
	if wrapWidth < markdownMinWrap {
		wrapWidth = markdownMinWrap
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}
