package layouts

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/orders-admin/internal/admin/templates/helpers"
)

const (
	appName   = "Orders Admin"
	htmxSrc   = "https://unpkg.com/htmx.org@1.9.12"
	tailwind  = "https://cdn.tailwindcss.com"
	bodyClass = "min-h-screen bg-slate-50 text-slate-900"
)

// Meta describes the document head of a console page.
type Meta struct {
	Title       string
	Description string
}

// Base wraps body in the console shell: head, sidebar and main column.
func Base(meta Meta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := helpers.NewMarkup(w)
		m.Raw("<!doctype html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		m.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		m.Element("title", "", title(meta.Title))
		if meta.Description != "" {
			m.Raw("<meta")
			m.Attr("name", "description")
			m.Attr("content", meta.Description)
			m.Raw(">")
		}
		m.Raw("<script")
		m.Attr("src", tailwind)
		m.Raw("></script><script")
		m.Attr("src", htmxSrc)
		m.Raw(" defer></script></head>")

		m.Open("body", bodyClass, "hx-boost", "true")
		m.Open("div", "flex min-h-screen")
		sidebar(ctx, m)
		m.Open("main", "flex-1 px-8 py-6", "id", "main")
		m.Component(ctx, body)
		m.Close("main")
		m.Close("div")
		m.Raw("</body></html>")
		return m.Err()
	})
}

func sidebar(ctx context.Context, m *helpers.Markup) {
	m.Open("aside", "w-56 shrink-0 border-r border-slate-200 bg-white px-4 py-6")
	m.Element("p", "mb-6 px-3 text-base font-semibold", appName)
	m.Open("nav", "flex flex-col gap-1", "aria-label", "Primary")
	for _, item := range helpers.NavItems(ctx) {
		attrs := []string{"href", item.Href}
		if item.Active {
			attrs = append(attrs, "aria-current", "page")
		}
		m.Element("a", helpers.NavClass(item.Active), item.Label, attrs...)
	}
	m.Close("nav")
	m.Close("aside")
}

func title(page string) string {
	if page == "" {
		return appName
	}
	return page + " | " + appName
}
