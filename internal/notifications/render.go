package notifications

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// HTMLRenderer converts reviewed markdown bodies to HTML for email delivery.
type HTMLRenderer interface {
	Render(markdown string) (string, error)
}

type goldmarkRenderer struct {
	engine goldmark.Markdown
}

// NewGoldmarkRenderer builds a renderer with GFM and linkify enabled. Raw HTML
// in bodies is escaped.
func NewGoldmarkRenderer() HTMLRenderer {
	return &goldmarkRenderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

func (r *goldmarkRenderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("notifications: render html: %w", err)
	}
	return buf.String(), nil
}
