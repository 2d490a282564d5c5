package returns

import (
	"net/url"
	"strconv"

	adminorders "finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/admin/templates/helpers"
	"finitefield.org/orders-admin/internal/admin/views"
)

const viewTarget = "#returns-view"

// PageData represents the payload for the returns page.
type PageData struct {
	Title       string
	Description string
	Filters     Filters
	View        ViewData
}

// Filters holds the status filter control.
type Filters struct {
	Action        string
	Target        string
	StatusOptions []SelectOption
}

// SelectOption represents a select menu option.
type SelectOption struct {
	Value    string
	Label    string
	Selected bool
}

// Notice is a banner shown above the table.
type Notice struct {
	Message string
	Tone    string
}

// ViewData is the swappable part of the returns page.
type ViewData struct {
	Notice       Notice
	Error        string
	Metrics      []MetricCard
	Rows         []Row
	EmptyMessage string
	Pagination   Pagination
}

// MetricCard represents a summary metric card.
type MetricCard struct {
	Key   string
	Label string
	Value string
	Tone  string
}

// Row represents a return request in the table.
type Row struct {
	ID          string
	OrderID     string
	OrderURL    string
	Customer    string
	Reason      string
	Notes       string
	StatusLabel string
	StatusTone  string
	Refund      string
	RefundTone  string
	Created     string
	Actions     []Action
	FormError   string
	FieldErrors map[string]string
}

// Action is an operator action form on a row.
type Action struct {
	Kind   string
	Label  string
	URL    string
	Target string
}

// Pagination describes pagination links.
type Pagination struct {
	Page        int
	TotalPages  int
	Total       int
	PrevURL     string
	NextURL     string
	SizeOptions []SizeLink
}

// SizeLink switches the page size.
type SizeLink struct {
	Label  string
	URL    string
	Active bool
}

// RowError attaches a failed action to its row.
type RowError struct {
	ReturnID    string
	Message     string
	FieldErrors map[string]string
}

// BuildPageData assembles the full SSR payload for the returns page.
func BuildPageData(basePath string, page views.ReturnsPage, errMsg string, notice Notice, rowErr RowError) PageData {
	statusOptions := []SelectOption{{Value: "", Label: "All statuses", Selected: page.Status == ""}}
	for _, status := range adminorders.ReturnStatuses() {
		statusOptions = append(statusOptions, SelectOption{
			Value:    string(status),
			Label:    status.Label(),
			Selected: page.Status == string(status),
		})
	}
	return PageData{
		Title:       "Returns",
		Description: "Review return requests and issue refunds.",
		Filters: Filters{
			Action:        helpers.JoinBase(basePath, "/returns"),
			Target:        viewTarget,
			StatusOptions: statusOptions,
		},
		View: BuildViewData(basePath, page, errMsg, notice, rowErr),
	}
}

// BuildViewData prepares the returns fragment.
func BuildViewData(basePath string, page views.ReturnsPage, errMsg string, notice Notice, rowErr RowError) ViewData {
	listPath := helpers.JoinBase(basePath, "/returns")
	rows := make([]Row, 0, len(page.Returns))
	for _, request := range page.Returns {
		refund := request.RefundState()
		row := Row{
			ID:          request.ID,
			OrderID:     request.OrderID,
			OrderURL:    helpers.JoinBase(basePath, "/orders/"+request.OrderID),
			Customer:    customerLabel(request),
			Reason:      request.Reason,
			Notes:       request.ResolutionNotes,
			StatusLabel: request.Status.Label(),
			StatusTone:  request.Status.Tone(),
			Refund:      adminorders.RefundDisplay(request),
			RefundTone:  refund.Tone(),
			Created:     helpers.Date(request.Audit.CreatedDate.Time, "2006-01-02 15:04"),
		}
		for _, action := range adminorders.AllowedReturnActions(request.Status) {
			row.Actions = append(row.Actions, Action{
				Kind:   string(action),
				Label:  actionLabel(action),
				URL:    helpers.JoinBase(basePath, "/returns/"+url.PathEscape(request.ID)+"/"+string(action)),
				Target: viewTarget,
			})
		}
		if rowErr.ReturnID == request.ID {
			row.FormError = rowErr.Message
			row.FieldErrors = rowErr.FieldErrors
		}
		rows = append(rows, row)
	}

	empty := ""
	if errMsg == "" && len(rows) == 0 {
		empty = "No return requests match the current filter."
	}

	data := ViewData{
		Notice:       notice,
		Error:        errMsg,
		Rows:         rows,
		EmptyMessage: empty,
		Pagination:   buildPagination(listPath, page),
	}
	if errMsg == "" {
		data.Metrics = buildMetrics(page.Summary)
	}
	return data
}

func buildPagination(listPath string, page views.ReturnsPage) Pagination {
	raw := ""
	if page.Status != "" {
		raw = helpers.SetRawQuery(raw, "status", page.Status)
	}
	raw = helpers.SetRawQuery(raw, "pageSize", strconv.Itoa(page.PageSize))

	p := Pagination{Page: page.Page, TotalPages: page.TotalPages, Total: page.Total}
	if page.Page > 1 {
		p.PrevURL = helpers.BuildURL(listPath, helpers.SetRawQuery(raw, "page", strconv.Itoa(page.Page-1)))
	}
	if page.Page < page.TotalPages {
		p.NextURL = helpers.BuildURL(listPath, helpers.SetRawQuery(raw, "page", strconv.Itoa(page.Page+1)))
	}
	for _, size := range page.PageSizes {
		sizeQuery := helpers.DelRawQuery(helpers.SetRawQuery(raw, "pageSize", strconv.Itoa(size)), "page")
		p.SizeOptions = append(p.SizeOptions, SizeLink{
			Label:  strconv.Itoa(size),
			URL:    helpers.BuildURL(listPath, sizeQuery),
			Active: size == page.PageSize,
		})
	}
	return p
}

func buildMetrics(summary adminorders.ReturnSummary) []MetricCard {
	return []MetricCard{
		{Key: "pending", Label: "Awaiting decision", Value: strconv.Itoa(summary.Pending), Tone: "warning"},
		{Key: "approved", Label: "Approved", Value: strconv.Itoa(summary.Approved), Tone: "info"},
		{Key: "rejected", Label: "Rejected", Value: strconv.Itoa(summary.Rejected), Tone: "danger"},
		{Key: "refunded", Label: "Refunded", Value: strconv.Itoa(summary.Refunded), Tone: "success"},
		{Key: "processing", Label: "Refunds processing", Value: strconv.Itoa(summary.RefundProcessing), Tone: "info"},
	}
}

func customerLabel(request adminorders.ReturnRequest) string {
	if request.Customer != nil {
		if request.Customer.Name != "" {
			return request.Customer.Name
		}
		if request.Customer.Email != "" {
			return request.Customer.Email
		}
	}
	return request.CustomerID
}

func actionLabel(action adminorders.ReturnAction) string {
	switch action {
	case adminorders.ActionApprove:
		return "Approve"
	case adminorders.ActionReject:
		return "Reject"
	case adminorders.ActionRefund:
		return "Refund"
	default:
		return string(action)
	}
}
