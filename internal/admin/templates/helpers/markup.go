package helpers

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Markup writes component output and keeps the first error, so component bodies can
// be written as a flat sequence of calls.
type Markup struct {
	w   io.Writer
	err error
}

// NewMarkup wraps w.
func NewMarkup(w io.Writer) *Markup {
	return &Markup{w: w}
}

// Raw writes trusted markup.
func (m *Markup) Raw(parts ...string) {
	for _, part := range parts {
		if m.err != nil {
			return
		}
		_, m.err = io.WriteString(m.w, part)
	}
}

// Text writes escaped text.
func (m *Markup) Text(value string) {
	m.Raw(templ.EscapeString(value))
}

// Attr writes ` name="value"` with the value escaped.
func (m *Markup) Attr(name, value string) {
	m.Raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// BoolAttr writes ` name` when on is true.
func (m *Markup) BoolAttr(name string, on bool) {
	if on {
		m.Raw(" ", name)
	}
}

// Open writes an opening tag with class and any extra attribute pairs.
func (m *Markup) Open(tag, class string, attrs ...string) {
	m.Raw("<", tag)
	if class != "" {
		m.Attr("class", class)
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		m.Attr(attrs[i], attrs[i+1])
	}
	m.Raw(">")
}

// Close writes a closing tag.
func (m *Markup) Close(tag string) {
	m.Raw("</", tag, ">")
}

// Element writes a complete element with escaped text content.
func (m *Markup) Element(tag, class, text string, attrs ...string) {
	m.Open(tag, class, attrs...)
	m.Text(text)
	m.Close(tag)
}

// Component renders a nested component.
func (m *Markup) Component(ctx context.Context, c templ.Component) {
	if m.err != nil || c == nil {
		return
	}
	m.err = c.Render(ctx, m.w)
}

// Err returns the first write error.
func (m *Markup) Err() error {
	return m.err
}
