package returns

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/orders-admin/internal/admin/templates/helpers"
	"finitefield.org/orders-admin/internal/admin/templates/layouts"
)

// Index renders the returns page.
func Index(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := helpers.NewMarkup(w)
		m.Open("header", "mb-6")
		m.Element("h1", "text-2xl font-semibold", data.Title)
		m.Element("p", "mt-1 text-sm text-slate-500", data.Description)
		m.Close("header")

		f := data.Filters
		m.Open("form", "mb-6 flex items-end gap-4 rounded-lg bg-white p-4 shadow-sm",
			"id", "returns-filters", "method", "get", "action", f.Action,
			"hx-get", f.Action, "hx-target", f.Target, "hx-swap", "outerHTML", "hx-trigger", "change")
		m.Open("label", "flex flex-col gap-1 text-sm")
		m.Element("span", "font-medium text-slate-600", "Status")
		m.Open("select", "rounded-md border-slate-300 text-sm", "name", "status")
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
		m.Close("form")

		m.Component(ctx, View(data.View))
		return m.Err()
	})
	return layouts.Base(layouts.Meta{Title: data.Title, Description: data.Description}, body)
}

// View renders the swappable returns fragment.
func View(data ViewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := helpers.NewMarkup(w)
		m.Open("section", "flex flex-col gap-6", "id", "returns-view")
		if data.Notice.Message != "" {
			m.Element("div", helpers.BadgeClass(data.Notice.Tone), data.Notice.Message, "role", "status", "data-notice", "true")
		}
		if data.Error != "" {
			m.Element("div", "rounded-md border border-rose-200 bg-rose-50 p-3 text-sm text-rose-700", data.Error, "role", "alert")
		}
		if len(data.Metrics) > 0 {
			m.Open("div", "grid grid-cols-2 gap-4 lg:grid-cols-5", "id", "returns-metrics")
			for _, card := range data.Metrics {
				m.Open("article", "rounded-lg bg-white p-4 shadow-sm", "data-metric", card.Key)
				m.Element("p", "text-xs font-medium uppercase tracking-wide text-slate-500", card.Label)
				m.Element("p", "mt-1 text-xl font-semibold", card.Value, "data-metric-value", card.Key)
				m.Close("article")
			}
			m.Close("div")
		}
		returnsTable(m, data)
		m.Close("section")
		return m.Err()
	})
}

func returnsTable(m *helpers.Markup, data ViewData) {
	m.Open("div", "overflow-hidden rounded-lg bg-white shadow-sm", "id", "returns-table")
	m.Open("table", "min-w-full divide-y divide-slate-200 text-sm")
	m.Raw("<thead><tr>")
	for _, heading := range []string{"Return", "Order", "Customer", "Reason", "Status", "Refund", "Opened", "Actions"} {
		m.Element("th", "px-4 py-2 text-left font-medium text-slate-500", heading, "scope", "col")
	}
	m.Raw("</tr></thead>")
	m.Open("tbody", "divide-y divide-slate-100")
	for _, row := range data.Rows {
		m.Open("tr", "align-top", "data-return-id", row.ID)
		m.Element("td", "px-4 py-2 font-medium", row.ID)
		m.Open("td", "px-4 py-2")
		m.Element("a", "text-sky-700 hover:underline", row.OrderID, "href", row.OrderURL)
		m.Close("td")
		m.Element("td", "px-4 py-2", row.Customer)
		m.Open("td", "px-4 py-2")
		m.Text(row.Reason)
		if row.Notes != "" {
			m.Element("p", "mt-1 text-xs text-slate-500", row.Notes)
		}
		m.Close("td")
		m.Open("td", "px-4 py-2")
		m.Element("span", helpers.BadgeClass(row.StatusTone), row.StatusLabel, "data-status", row.StatusLabel)
		m.Close("td")
		m.Open("td", "px-4 py-2")
		m.Element("span", helpers.BadgeClass(row.RefundTone), row.Refund, "data-refund", row.Refund)
		m.Close("td")
		m.Element("td", "px-4 py-2 text-slate-500", row.Created)
		m.Open("td", "px-4 py-2")
		if row.FormError != "" {
			m.Element("p", "mb-2 text-xs text-rose-700", row.FormError, "role", "alert")
		}
		for _, action := range row.Actions {
			actionForm(m, action, row.FieldErrors)
		}
		m.Close("td")
		m.Close("tr")
	}
	if data.EmptyMessage != "" {
		m.Raw(`<tr><td colspan="8" class="px-4 py-6 text-center text-slate-500" data-empty="true">`)
		m.Text(data.EmptyMessage)
		m.Raw("</td></tr>")
	}
	m.Close("tbody")
	m.Close("table")
	pagination(m, data.Pagination)
	m.Close("div")
}

func actionForm(m *helpers.Markup, action Action, fieldErrors map[string]string) {
	m.Open("form", "mb-2 flex flex-wrap items-center gap-2",
		"method", "post", "action", action.URL, "data-action", action.Kind,
		"hx-post", action.URL, "hx-target", action.Target, "hx-swap", "outerHTML")
	switch action.Kind {
	case "approve":
		input(m, "text", "resolutionNotes", "Notes (optional)")
		m.Open("label", "flex items-center gap-1 text-xs")
		m.Raw(`<input type="checkbox" name="autoRefund" value="true">`)
		m.Text("Refund now")
		m.Close("label")
		input(m, "text", "refundAmount", "Amount (defaults to order total)")
	case "reject":
		input(m, "text", "resolutionNotes", "Rejection notes")
	case "refund":
		input(m, "text", "amount", "Amount (defaults to order total)")
		input(m, "text", "reason", "Reason (optional)")
	}
	for _, key := range []string{"resolutionNotes", "amount", "refundAmount"} {
		if msg := fieldErrors[key]; msg != "" && formHasField(action.Kind, key) {
			m.Element("span", "text-xs text-rose-700", msg, "data-field-error", key)
		}
	}
	m.Element("button", "rounded-md border border-slate-300 px-2 py-1 text-xs", action.Label, "type", "submit")
	m.Close("form")
}

func formHasField(kind, key string) bool {
	switch kind {
	case "approve":
		return key == "resolutionNotes" || key == "refundAmount" || key == "amount"
	case "reject":
		return key == "resolutionNotes"
	case "refund":
		return key == "amount"
	}
	return false
}

func input(m *helpers.Markup, kind, name, placeholder string) {
	m.Raw("<input")
	m.Attr("class", "rounded-md border-slate-300 text-xs")
	m.Attr("type", kind)
	m.Attr("name", name)
	m.Attr("placeholder", placeholder)
	m.Raw(">")
}

func pagination(m *helpers.Markup, p Pagination) {
	m.Open("nav", "flex items-center justify-between gap-4 border-t border-slate-200 px-4 py-3 text-sm",
		"aria-label", "Pagination")
	m.Element("p", "text-slate-500", "Page "+strconv.Itoa(p.Page)+" of "+strconv.Itoa(p.TotalPages)+" · "+strconv.Itoa(p.Total)+" returns",
		"data-page", strconv.Itoa(p.Page))
	m.Open("div", "flex items-center gap-2")
	pageLink(m, "Previous", p.PrevURL)
	pageLink(m, "Next", p.NextURL)
	for _, size := range p.SizeOptions {
		class := "px-2 text-slate-500 hover:text-slate-900"
		if size.Active {
			class = "px-2 font-semibold text-slate-900"
		}
		m.Element("a", class, size.Label, "href", size.URL, "data-page-size", size.Label)
	}
	m.Close("div")
	m.Close("nav")
}

func pageLink(m *helpers.Markup, label, href string) {
	if href == "" {
		m.Element("span", "rounded-md border border-slate-200 px-3 py-1 text-slate-300", label, "aria-disabled", "true")
		return
	}
	m.Element("a", "rounded-md border border-slate-300 px-3 py-1", label, "href", href)
}
