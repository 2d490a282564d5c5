package orders

import (
	"net/url"
	"strconv"

	adminorders "finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/admin/templates/helpers"
	"finitefield.org/orders-admin/internal/admin/views"
)

// DetailData is the order detail page payload.
type DetailData struct {
	Title       string
	BackURL     string
	OrderID     string
	CustomerID  string
	StatusLabel string
	StatusTone  string
	Total       string
	PlacedLabel string
	Shipping    string
	Items       []DetailItem
	Timeline    []StepView
	Milestones  []StepView
	Manage      ManagePanel
	Return      ReturnPanel
}

// ManagePanel describes the edit and cancel forms of the detail page.
type ManagePanel struct {
	// Editable is false once the order is cancelled.
	Editable        bool
	UpdateAction    string
	CancelAction    string
	StatusOptions   []SelectOption
	ShippingAddress string
	Error           string
	FieldErrors     map[string]string
}

// DetailItem is one order line.
type DetailItem struct {
	ProductID string
	Quantity  string
	UnitPrice string
}

// StepView is a timeline step or milestone.
type StepView struct {
	Label  string
	Active bool
}

// ReturnPanel describes the return section of the detail page.
type ReturnPanel struct {
	// Existing is set when a return request was already opened.
	Existing      *ReturnSummary
	CanRequest    bool
	Blocked       string
	FormAction    string
	Reason        string
	FormError     string
	FieldErrors   map[string]string
	MinReasonHint string
}

// ReturnSummary is the compact view of an existing return request.
type ReturnSummary struct {
	ID          string
	StatusLabel string
	StatusTone  string
	Refund      string
	RefundTone  string
	URL         string
}

// ReturnFormState carries a rejected submission back into the form.
type ReturnFormState struct {
	Reason      string
	Error       string
	FieldErrors map[string]string
}

// OrderFormState carries a rejected edit or cancellation back into the manage panel.
type OrderFormState struct {
	Status          string
	ShippingAddress *string
	Error           string
	FieldErrors     map[string]string
}

// DetailForms holds the submissions re-rendered on the detail page.
type DetailForms struct {
	Return ReturnFormState
	Order  OrderFormState
}

// BuildDetailData assembles the order detail page.
func BuildDetailData(basePath string, detail views.OrderDetail, forms DetailForms) DetailData {
	order := detail.Order
	form := forms.Return
	data := DetailData{
		Title:       "Order " + order.ID,
		BackURL:     helpers.JoinBase(basePath, "/orders"),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		StatusLabel: order.Status.Label(),
		StatusTone:  order.Status.Tone(),
		Total:       order.Total.String(),
		PlacedLabel: helpers.Date(order.PlacedAt(), "2006-01-02 15:04"),
		Shipping:    order.ShippingAddress,
	}
	for _, item := range order.Items {
		data.Items = append(data.Items, DetailItem{
			ProductID: item.ProductID,
			Quantity:  strconv.Itoa(item.Quantity),
			UnitPrice: item.UnitPrice.String(),
		})
	}
	for _, step := range detail.Timeline {
		data.Timeline = append(data.Timeline, StepView{Label: step.Stage.Label(), Active: step.Active})
	}
	for _, milestone := range detail.Milestones {
		data.Milestones = append(data.Milestones, StepView{Label: milestone.Label, Active: milestone.Active})
	}

	data.Manage = buildManagePanel(basePath, order, forms.Order)

	data.Return = ReturnPanel{
		CanRequest:    detail.CanRequestReturn,
		Blocked:       detail.ReturnBlocked,
		FormAction:    helpers.JoinBase(basePath, "/returns"),
		Reason:        form.Reason,
		FormError:     form.Error,
		FieldErrors:   form.FieldErrors,
		MinReasonHint: "At least " + strconv.Itoa(adminorders.MinReturnReasonLength) + " characters.",
	}
	if request := detail.Return; request != nil {
		state := request.RefundState()
		data.Return.Existing = &ReturnSummary{
			ID:          request.ID,
			StatusLabel: request.Status.Label(),
			StatusTone:  request.Status.Tone(),
			Refund:      adminorders.RefundDisplay(*request),
			RefundTone:  state.Tone(),
			URL:         helpers.JoinBase(basePath, "/returns"),
		}
	}
	return data
}

func buildManagePanel(basePath string, order adminorders.Order, form OrderFormState) ManagePanel {
	orderURL := helpers.JoinBase(basePath, "/orders/"+url.PathEscape(order.ID))
	panel := ManagePanel{
		Editable:        adminorders.CanUpdateOrder(order) == nil,
		UpdateAction:    orderURL + "/update",
		CancelAction:    orderURL + "/cancel",
		ShippingAddress: order.ShippingAddress,
		Error:           form.Error,
		FieldErrors:     form.FieldErrors,
	}
	if form.ShippingAddress != nil {
		panel.ShippingAddress = *form.ShippingAddress
	}
	selected := string(order.Status)
	if form.Status != "" {
		selected = form.Status
	}
	for _, status := range adminorders.OrderStatuses() {
		panel.StatusOptions = append(panel.StatusOptions, SelectOption{
			Value:    string(status),
			Label:    status.Label(),
			Selected: selected == string(status),
		})
	}
	return panel
}
