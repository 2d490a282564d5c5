package orders

import (
	"strconv"
	"strings"

	adminorders "finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/admin/templates/helpers"
	"finitefield.org/orders-admin/internal/admin/views"
)

const viewTarget = "#orders-view"

// PageData represents the payload for the orders index page.
type PageData struct {
	Title       string
	Description string
	Filters     Filters
	View        ViewData
}

// Filters encapsulates filter control data.
type Filters struct {
	Action        string
	Target        string
	Status        string
	Customer      string
	SearchDelay   string
	StatusOptions []SelectOption
	HasActive     bool
}

// SelectOption represents a select menu option.
type SelectOption struct {
	Value    string
	Label    string
	Selected bool
}

// ViewData is the swappable part of the page: insights and the table.
type ViewData struct {
	FragmentPath string
	Metrics      []MetricCard
	MetricsError string
	Table        TableData
	LastUpdated  string
	LastRelative string
}

// TableData contains the payload for the orders table.
type TableData struct {
	Rows         []TableRow
	Error        string
	EmptyMessage string
	Pagination   Pagination
}

// Pagination describes pagination metadata and the controls that change it.
type Pagination struct {
	Page           int
	PageSize       int
	Total          int
	TotalPages     int
	HasPrev        bool
	HasNext        bool
	PageAction     string
	PageSizeAction string
	Target         string
	SizeOptions    []SelectOption
}

// TableRow represents a single table row.
type TableRow struct {
	ID             string
	URL            string
	Customer       []helpers.HighlightSegment
	StatusLabel    string
	StatusTone     string
	Total          string
	Items          string
	PlacedLabel    string
	PlacedRelative string
}

// MetricCard represents a summary metric card.
type MetricCard struct {
	Key     string
	Label   string
	Value   string
	SubText string
	Tone    string
}

// BuildPageData assembles the full SSR payload for the orders page.
func BuildPageData(basePath string, page views.OrdersPage, errMsg string, searchDelay string) PageData {
	statusOptions := []SelectOption{{Value: "", Label: "All statuses", Selected: page.Status == ""}}
	for _, status := range adminorders.OrderStatuses() {
		statusOptions = append(statusOptions, SelectOption{
			Value:    string(status),
			Label:    status.Label(),
			Selected: page.Status == string(status),
		})
	}

	return PageData{
		Title:       "Orders",
		Description: "Track order status, revenue and fulfilment progress.",
		Filters: Filters{
			Action:        helpers.JoinBase(basePath, "/orders/filters"),
			Target:        viewTarget,
			Status:        page.Status,
			Customer:      page.Customer,
			SearchDelay:   searchDelay,
			StatusOptions: statusOptions,
			HasActive:     page.HasFilters(),
		},
		View: BuildViewData(basePath, page, errMsg),
	}
}

// BuildViewData prepares the insights and table fragment.
func BuildViewData(basePath string, page views.OrdersPage, errMsg string) ViewData {
	data := ViewData{
		FragmentPath: helpers.JoinBase(basePath, "/orders/table"),
		Table:        tablePayload(basePath, page, errMsg),
	}
	if errMsg == "" {
		if page.SummaryErr != nil {
			data.MetricsError = "Failed to load insights: " + page.SummaryErr.Error()
		} else {
			data.Metrics = buildMetrics(page.Summary)
		}
	}
	if !page.FetchedAt.IsZero() {
		data.LastUpdated = helpers.Date(page.FetchedAt, "2006-01-02 15:04:05")
		data.LastRelative = helpers.Relative(page.FetchedAt)
	}
	return data
}

func tablePayload(basePath string, page views.OrdersPage, errMsg string) TableData {
	rows := make([]TableRow, 0, len(page.Orders))
	for _, order := range page.Orders {
		placed := order.PlacedAt()
		rows = append(rows, TableRow{
			ID:             order.ID,
			URL:            helpers.JoinBase(basePath, "/orders/"+strings.TrimSpace(order.ID)),
			Customer:       helpers.HighlightSegments(order.CustomerID, page.Customer),
			StatusLabel:    order.Status.Label(),
			StatusTone:     order.Status.Tone(),
			Total:          order.Total.String(),
			Items:          strconv.Itoa(order.ItemCount()),
			PlacedLabel:    helpers.Date(placed, "2006-01-02 15:04"),
			PlacedRelative: helpers.Relative(placed),
		})
	}

	empty := ""
	if errMsg == "" && len(rows) == 0 {
		empty = "No orders match the current filters."
		if !page.Loaded {
			empty = "Loading orders…"
		}
	}

	sizes := make([]SelectOption, 0, len(page.PageSizes))
	for _, size := range page.PageSizes {
		sizes = append(sizes, SelectOption{
			Value:    strconv.Itoa(size),
			Label:    strconv.Itoa(size) + " per page",
			Selected: size == page.PageSize,
		})
	}

	return TableData{
		Rows:         rows,
		Error:        errMsg,
		EmptyMessage: empty,
		Pagination: Pagination{
			Page:           page.Page,
			PageSize:       page.PageSize,
			Total:          page.Total,
			TotalPages:     page.TotalPages,
			HasPrev:        page.Page > 1,
			HasNext:        page.Page < page.TotalPages,
			PageAction:     helpers.JoinBase(basePath, "/orders/page"),
			PageSizeAction: helpers.JoinBase(basePath, "/orders/page-size"),
			Target:         viewTarget,
			SizeOptions:    sizes,
		},
	}
}

func buildMetrics(summary adminorders.Summary) []MetricCard {
	return []MetricCard{
		{Key: "pending", Label: "Pending payment", Value: strconv.Itoa(summary.Pending), SubText: "awaiting confirmation", Tone: "warning"},
		{Key: "confirmed", Label: "Confirmed", Value: strconv.Itoa(summary.Confirmed), SubText: "paid and fulfilled", Tone: "success"},
		{Key: "cancelled", Label: "Cancelled", Value: strconv.Itoa(summary.Cancelled), SubText: "before fulfilment", Tone: "danger"},
		{Key: "revenue", Label: "Revenue", Value: adminorders.FormatAmount(summary.Revenue, summary.Currency), SubText: "current view", Tone: "info"},
		{Key: "average", Label: "Average order", Value: adminorders.FormatAmount(summary.Average, summary.Currency), SubText: strconv.Itoa(summary.Count) + " orders", Tone: "info"},
	}
}
