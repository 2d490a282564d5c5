package orders

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/orders-admin/internal/admin/templates/helpers"
	"finitefield.org/orders-admin/internal/admin/templates/layouts"
)

// Index renders the orders page.
func Index(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := helpers.NewMarkup(w)
		m.Open("header", "mb-6")
		m.Element("h1", "text-2xl font-semibold", data.Title)
		m.Element("p", "mt-1 text-sm text-slate-500", data.Description)
		m.Close("header")
		filterBar(m, data.Filters)
		m.Component(ctx, View(data.View))
		return m.Err()
	})
	return layouts.Base(layouts.Meta{Title: data.Title, Description: data.Description}, body)
}

func filterBar(m *helpers.Markup, f Filters) {
	m.Open("form", "mb-6 flex flex-wrap items-end gap-4 rounded-lg bg-white p-4 shadow-sm",
		"id", "orders-filters",
		"method", "post",
		"action", f.Action,
		"hx-post", f.Action,
		"hx-target", f.Target,
		"hx-swap", "outerHTML",
	)

	m.Open("label", "flex flex-col gap-1 text-sm")
	m.Element("span", "font-medium text-slate-600", "Status")
	m.Open("select", "rounded-md border-slate-300 text-sm",
		"name", "status", "hx-post", f.Action, "hx-trigger", "change", "hx-include", "closest form")
	for _, option := range f.StatusOptions {
		m.Raw("<option")
		m.Attr("value", option.Value)
		m.BoolAttr("selected", option.Selected)
		m.Raw(">")
		m.Text(option.Label)
		m.Raw("</option>")
	}
	m.Close("select")
	m.Close("label")

	m.Open("label", "flex flex-col gap-1 text-sm")
	m.Element("span", "font-medium text-slate-600", "Customer")
	m.Raw("<input")
	m.Attr("class", "rounded-md border-slate-300 text-sm")
	m.Attr("type", "search")
	m.Attr("name", "customer")
	m.Attr("value", f.Customer)
	m.Attr("placeholder", "Customer ID")
	m.Attr("autocomplete", "off")
	m.Attr("hx-post", f.Action)
	m.Attr("hx-trigger", "input changed delay:"+f.SearchDelay+", search")
	m.Attr("hx-include", "closest form")
	m.Raw(">")
	m.Close("label")

	if f.HasActive {
		m.Element("button", "rounded-md px-3 py-2 text-sm text-slate-600 hover:bg-slate-100", "Reset filters",
			"type", "submit", "name", "reset", "value", "1")
	}
	m.Raw("<noscript>")
	m.Element("button", "rounded-md bg-slate-900 px-3 py-2 text-sm text-white", "Apply", "type", "submit")
	m.Raw("</noscript>")
	m.Close("form")
}

// View renders the swappable insights and table fragment.
func View(data ViewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := helpers.NewMarkup(w)
		m.Open("section", "flex flex-col gap-6", "id", "orders-view", "data-fragment", data.FragmentPath)
		metrics(m, data)
		table(m, data.Table)
		m.Close("section")
		return m.Err()
	})
}

func metrics(m *helpers.Markup, data ViewData) {
	if data.MetricsError != "" {
		m.Element("div", "rounded-md border border-amber-200 bg-amber-50 p-3 text-sm text-amber-800", data.MetricsError,
			"role", "alert", "data-metrics-error", "true")
		return
	}
	if len(data.Metrics) == 0 {
		return
	}
	m.Open("div", "grid grid-cols-2 gap-4 lg:grid-cols-5", "id", "orders-metrics")
	for _, card := range data.Metrics {
		m.Open("article", "rounded-lg bg-white p-4 shadow-sm", "data-metric", card.Key)
		m.Element("p", "text-xs font-medium uppercase tracking-wide text-slate-500", card.Label)
		m.Element("p", "mt-1 text-xl font-semibold", card.Value, "data-metric-value", card.Key)
		m.Element("span", helpers.BadgeClass(card.Tone), card.SubText)
		m.Close("article")
	}
	m.Close("div")
	if data.LastUpdated != "" {
		m.Element("p", "text-xs text-slate-400", "Updated "+data.LastUpdated+" ("+data.LastRelative+")")
	}
}

func table(m *helpers.Markup, data TableData) {
	m.Open("div", "overflow-hidden rounded-lg bg-white shadow-sm", "id", "orders-table")
	if data.Error != "" {
		m.Element("div", "border-b border-rose-200 bg-rose-50 p-3 text-sm text-rose-700", data.Error, "role", "alert")
	}
	m.Open("table", "min-w-full divide-y divide-slate-200 text-sm")
	m.Raw("<thead><tr>")
	for _, heading := range []string{"Order", "Customer", "Status", "Items", "Total", "Placed"} {
		m.Element("th", "px-4 py-2 text-left font-medium text-slate-500", heading, "scope", "col")
	}
	m.Raw("</tr></thead>")
	m.Open("tbody", "divide-y divide-slate-100")
	for _, row := range data.Rows {
		m.Open("tr", "", "data-order-id", row.ID)
		m.Open("td", "px-4 py-2 font-medium")
		m.Element("a", "text-sky-700 hover:underline", row.ID, "href", row.URL)
		m.Close("td")
		m.Open("td", "px-4 py-2", "data-customer", "true")
		for _, segment := range row.Customer {
			if segment.Match {
				m.Element("mark", "bg-amber-100", segment.Text)
				continue
			}
			m.Text(segment.Text)
		}
		m.Close("td")
		m.Open("td", "px-4 py-2")
		m.Element("span", helpers.BadgeClass(row.StatusTone), row.StatusLabel, "data-status", row.StatusLabel)
		m.Close("td")
		m.Element("td", "px-4 py-2", row.Items)
		m.Element("td", "px-4 py-2 tabular-nums", row.Total)
		m.Element("td", "px-4 py-2 text-slate-500", row.PlacedLabel, "title", row.PlacedRelative)
		m.Close("tr")
	}
	if data.EmptyMessage != "" {
		m.Raw(`<tr><td colspan="6" class="px-4 py-6 text-center text-slate-500" data-empty="true">`)
		m.Text(data.EmptyMessage)
		m.Raw("</td></tr>")
	}
	m.Close("tbody")
	m.Close("table")
	pagination(m, data.Pagination)
	m.Close("div")
}

func pagination(m *helpers.Markup, p Pagination) {
	m.Open("nav", "flex items-center justify-between gap-4 border-t border-slate-200 px-4 py-3 text-sm",
		"aria-label", "Pagination")
	m.Element("p", "text-slate-500", "Page "+strconv.Itoa(p.Page)+" of "+strconv.Itoa(p.TotalPages)+" · "+strconv.Itoa(p.Total)+" orders",
		"data-page", strconv.Itoa(p.Page))

	m.Open("form", "flex items-center gap-2",
		"method", "post", "action", p.PageAction,
		"hx-post", p.PageAction, "hx-target", p.Target, "hx-swap", "outerHTML")
	pageButton(m, "prev", "Previous", p.HasPrev)
	pageButton(m, "next", "Next", p.HasNext)
	m.Close("form")

	m.Open("form", "",
		"method", "post", "action", p.PageSizeAction,
		"hx-post", p.PageSizeAction, "hx-target", p.Target, "hx-swap", "outerHTML", "hx-trigger", "change")
	m.Open("select", "rounded-md border-slate-300 text-sm", "name", "pageSize", "aria-label", "Page size")
	for _, option := range p.SizeOptions {
		m.Raw("<option")
		m.Attr("value", option.Value)
		m.BoolAttr("selected", option.Selected)
		m.Raw(">")
		m.Text(option.Label)
		m.Raw("</option>")
	}
	m.Close("select")
	m.Close("form")
	m.Close("nav")
}

func pageButton(m *helpers.Markup, direction, label string, enabled bool) {
	m.Raw("<button")
	m.Attr("class", "rounded-md border border-slate-300 px-3 py-1 disabled:opacity-40")
	m.Attr("type", "submit")
	m.Attr("name", "direction")
	m.Attr("value", direction)
	m.BoolAttr("disabled", !enabled)
	m.Raw(">")
	m.Text(label)
	m.Raw("</button>")
}
