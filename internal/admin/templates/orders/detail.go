package orders

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/orders-admin/internal/admin/templates/helpers"
	"finitefield.org/orders-admin/internal/admin/templates/layouts"
)

// Detail renders the order detail page.
func Detail(data DetailData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := helpers.NewMarkup(w)
		m.Element("a", "text-sm text-sky-700 hover:underline", "← Back to orders", "href", data.BackURL)
		m.Open("header", "mb-6 mt-2 flex items-center gap-3")
		m.Element("h1", "text-2xl font-semibold", data.Title)
		m.Element("span", helpers.BadgeClass(data.StatusTone), data.StatusLabel, "data-status", data.StatusLabel)
		m.Close("header")

		m.Open("div", "grid gap-6 lg:grid-cols-3")
		m.Open("section", "rounded-lg bg-white p-4 shadow-sm lg:col-span-2", "id", "order-summary")
		m.Open("dl", "grid grid-cols-2 gap-3 text-sm")
		definition(m, "Customer", data.CustomerID)
		definition(m, "Total", data.Total)
		definition(m, "Placed", data.PlacedLabel)
		if data.Shipping != "" {
			definition(m, "Ship to", data.Shipping)
		}
		m.Close("dl")
		if len(data.Items) > 0 {
			m.Open("table", "mt-4 min-w-full text-sm")
			m.Raw("<thead><tr>")
			for _, heading := range []string{"Product", "Qty", "Unit price"} {
				m.Element("th", "py-1 text-left font-medium text-slate-500", heading, "scope", "col")
			}
			m.Raw("</tr></thead><tbody>")
			for _, item := range data.Items {
				m.Raw("<tr>")
				m.Element("td", "py-1", item.ProductID)
				m.Element("td", "py-1", item.Quantity)
				m.Element("td", "py-1 tabular-nums", item.UnitPrice)
				m.Raw("</tr>")
			}
			m.Raw("</tbody></table>")
		}
		m.Close("section")

		m.Open("section", "rounded-lg bg-white p-4 shadow-sm")
		m.Element("h2", "mb-3 text-sm font-semibold", "Fulfilment")
		steps(m, "order-timeline", data.Timeline)
		m.Element("h2", "mb-3 mt-5 text-sm font-semibold", "Milestones")
		steps(m, "order-milestones", data.Milestones)
		m.Close("section")
		m.Close("div")

		managePanel(m, data.Manage)
		returnPanel(m, data.OrderID, data.Return)
		return m.Err()
	})
	return layouts.Base(layouts.Meta{Title: data.Title}, body)
}

func definition(m *helpers.Markup, term, value string) {
	m.Raw("<div>")
	m.Element("dt", "text-slate-500", term)
	m.Element("dd", "font-medium", value)
	m.Raw("</div>")
}

func steps(m *helpers.Markup, id string, items []StepView) {
	m.Open("ol", "flex flex-col gap-2", "id", id)
	for _, step := range items {
		state := "pending"
		marker := "○"
		if step.Active {
			state = "done"
			marker = "●"
		}
		m.Open("li", helpers.StepClass(step.Active), "data-state", state)
		m.Element("span", "", marker, "aria-hidden", "true")
		m.Text(step.Label)
		m.Close("li")
	}
	m.Close("ol")
}

func managePanel(m *helpers.Markup, panel ManagePanel) {
	m.Open("section", "mt-6 rounded-lg bg-white p-4 shadow-sm", "id", "order-manage")
	m.Element("h2", "mb-3 text-sm font-semibold", "Manage order")
	if panel.Error != "" {
		m.Element("p", "mb-3 text-sm text-rose-700", panel.Error, "role", "alert")
	}
	if !panel.Editable {
		m.Element("p", "text-sm text-slate-500", "Cancelled orders can no longer be changed.", "data-order-locked", "true")
		m.Close("section")
		return
	}

	m.Open("form", "flex flex-col gap-3", "id", "order-update-form", "method", "post", "action", panel.UpdateAction)
	m.Open("label", "flex flex-col gap-1 text-sm")
	m.Element("span", "font-medium text-slate-600", "Status")
	m.Open("select", "rounded-md border-slate-300 text-sm", "name", "status")
	for _, option := range panel.StatusOptions {
		m.Raw("<option")
		m.Attr("value", option.Value)
		m.BoolAttr("selected", option.Selected)
		m.Raw(">")
		m.Text(option.Label)
		m.Raw("</option>")
	}
	m.Close("select")
	if msg := panel.FieldErrors["status"]; msg != "" {
		m.Element("span", "text-xs text-rose-700", msg, "data-field-error", "status")
	}
	m.Close("label")
	m.Open("label", "flex flex-col gap-1 text-sm")
	m.Element("span", "font-medium text-slate-600", "Shipping address")
	m.Element("textarea", "rounded-md border-slate-300 text-sm", panel.ShippingAddress, "name", "shippingAddress", "rows", "2")
	if msg := panel.FieldErrors["shippingAddress"]; msg != "" {
		m.Element("span", "text-xs text-rose-700", msg, "data-field-error", "shippingAddress")
	}
	m.Close("label")
	m.Element("button", "self-start rounded-md bg-slate-900 px-3 py-2 text-sm text-white", "Save", "type", "submit")
	m.Close("form")

	m.Open("form", "mt-4 flex items-end gap-3", "id", "order-cancel-form", "method", "post", "action", panel.CancelAction)
	m.Open("label", "flex flex-1 flex-col gap-1 text-sm")
	m.Element("span", "font-medium text-slate-600", "Cancellation reason")
	m.Raw("<input")
	m.Attr("class", "rounded-md border-slate-300 text-sm")
	m.Attr("type", "text")
	m.Attr("name", "reason")
	m.Raw(">")
	m.Close("label")
	m.Element("button", "rounded-md bg-rose-700 px-3 py-2 text-sm text-white", "Cancel order", "type", "submit")
	m.Close("form")
	m.Close("section")
}

func returnPanel(m *helpers.Markup, orderID string, panel ReturnPanel) {
	m.Open("section", "mt-6 rounded-lg bg-white p-4 shadow-sm", "id", "order-return")
	m.Element("h2", "mb-3 text-sm font-semibold", "Return")

	switch {
	case panel.Existing != nil:
		existing := panel.Existing
		m.Open("p", "flex items-center gap-2 text-sm")
		m.Element("a", "font-medium text-sky-700 hover:underline", existing.ID, "href", existing.URL)
		m.Element("span", helpers.BadgeClass(existing.StatusTone), existing.StatusLabel, "data-return-status", existing.StatusLabel)
		m.Element("span", helpers.BadgeClass(existing.RefundTone), existing.Refund, "data-refund", existing.Refund)
		m.Close("p")
		if panel.FormError != "" {
			m.Element("p", "mt-2 text-sm text-rose-700", panel.FormError, "role", "alert")
		}
	case panel.CanRequest:
		m.Open("form", "flex flex-col gap-3",
			"id", "return-form", "method", "post", "action", panel.FormAction)
		m.Raw("<input")
		m.Attr("type", "hidden")
		m.Attr("name", "orderId")
		m.Attr("value", orderID)
		m.Raw(">")
		if panel.FormError != "" {
			m.Element("p", "text-sm text-rose-700", panel.FormError, "role", "alert")
		}
		m.Open("label", "flex flex-col gap-1 text-sm")
		m.Element("span", "font-medium text-slate-600", "Reason")
		m.Element("textarea", "rounded-md border-slate-300 text-sm", panel.Reason, "name", "reason", "rows", "3", "required", "required")
		if msg := panel.FieldErrors["reason"]; msg != "" {
			m.Element("span", "text-xs text-rose-700", msg, "data-field-error", "reason")
		} else {
			m.Element("span", "text-xs text-slate-400", panel.MinReasonHint)
		}
		m.Close("label")
		m.Element("button", "self-start rounded-md bg-slate-900 px-3 py-2 text-sm text-white", "Request return", "type", "submit")
		m.Close("form")
	default:
		m.Element("p", "text-sm text-slate-500", panel.Blocked, "data-return-blocked", "true")
		if panel.FormError != "" {
			m.Element("p", "text-sm text-rose-700", panel.FormError, "role", "alert")
		}
	}
	m.Close("section")
}
