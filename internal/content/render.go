package content

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer converts note bodies to HTML. Text runs are treated as Markdown.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a Renderer with GitHub Flavored Markdown enabled.
// Raw HTML inside text runs is escaped.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)
	return &Renderer{md: md}
}

// Render writes blocks as an HTML fragment.
func (r *Renderer) Render(blocks []Block) ([]byte, error) {
	var buf bytes.Buffer
	for _, b := range blocks {
		switch v := b.(type) {
		case Text:
			if v.Text == "" {
				continue
			}
			if err := r.md.Convert([]byte(v.Text), &buf); err != nil {
				return nil, fmt.Errorf("failed to render text block: %w", err)
			}
		case Image:
			src := v.Source.URI
			if !v.Source.IsRemote() {
				src = fmt.Sprintf("res://%d", v.Source.ResourceID)
			} else if !safeURL(src) {
				continue
			}
			fmt.Fprintf(&buf, "<figure><img src=\"%s\" width=\"%d\" height=\"%d\" /></figure>\n",
				html.EscapeString(src), v.WidthPx, v.HeightPx)
		case ImageGroup:
			class := "gallery"
			if v.Inline {
				class = "gallery inline"
			}
			fmt.Fprintf(&buf, "<div class=\"%s\">", class)
			for _, uri := range v.URIs {
				if !safeURL(uri) {
					continue
				}
				fmt.Fprintf(&buf, "<img src=\"%s\" />", html.EscapeString(uri))
			}
			buf.WriteString("</div>\n")
		case File:
			if v.URI == nil {
				fmt.Fprintf(&buf, "<p class=\"attachment pending\">%s</p>\n", html.EscapeString(v.Name))
				continue
			}
			if !safeURL(*v.URI) {
				fmt.Fprintf(&buf, "<p class=\"attachment\">%s</p>\n", html.EscapeString(v.Name))
				continue
			}
			fmt.Fprintf(&buf, "<p class=\"attachment\"><a href=\"%s\">%s</a></p>\n",
				html.EscapeString(*v.URI), html.EscapeString(v.Name))
		}
	}
	return buf.Bytes(), nil
}

// safeURL reports whether uri may be emitted as a link or image source. Tabs,
// newlines and leading control characters are ignored the way browsers
// ignore them before the scheme is checked.
func safeURL(uri string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, uri)
	cleaned = strings.TrimLeftFunc(cleaned, func(r rune) bool { return r <= ' ' })
	return !gmhtml.IsDangerousURL([]byte(cleaned))
}
