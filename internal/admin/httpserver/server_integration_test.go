package httpserver_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/orders-admin/internal/admin/testutil"
)

func TestRootRedirectsToOrders(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	resp, err := client.Get(ts.URL + "/admin")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/orders", resp.Header.Get("Location"))
}

func TestOrdersPageRendersListingAndInsights(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	resp, doc := get(t, client, ts.URL+"/admin/orders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store, max-age=0", resp.Header.Get("Cache-Control"))
	require.NotEmpty(t, resp.Cookies(), "view session cookie should be issued")

	require.Equal(t, "Orders | Orders Admin", doc.Find("title").First().Text())
	require.Equal(t, 7, doc.Find("#orders-table tr[data-order-id]").Length())
	require.Equal(t, "2", metricValue(doc, "pending"))
	require.Equal(t, "4", metricValue(doc, "confirmed"))
	require.Equal(t, "1", metricValue(doc, "cancelled"))
	require.Equal(t, "1", doc.Find("[data-page]").AttrOr("data-page", ""))

	input := doc.Find(`#orders-filters input[name="customer"]`)
	require.Equal(t, "input changed delay:10ms, search", input.AttrOr("hx-trigger", ""))
}

func TestOrdersStatusFilterReturnsFragment(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)
	get(t, client, ts.URL+"/admin/orders", nil)

	resp, doc := post(t, client, ts.URL+"/admin/orders/filters", url.Values{"status": {"Confirmed"}, "customer": {""}}, htmxHeaders("orders-view", "status"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Zero(t, doc.Find("title").Length(), "fragment responses must not include the layout")
	require.Equal(t, []string{"ord-1005", "ord-1003", "ord-1002", "ord-1000"}, orderIDs(doc))
	require.Equal(t, "4", metricValue(doc, "confirmed"))
	require.Equal(t, "0", metricValue(doc, "pending"))

	// The selection sticks to the session.
	_, doc = get(t, client, ts.URL+"/admin/orders", nil)
	require.Equal(t, "Confirmed", doc.Find(`select[name="status"] option[selected]`).AttrOr("value", ""))
	require.Len(t, orderIDs(doc), 4)
}

func TestOrdersCustomerSearch(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)
	get(t, client, ts.URL+"/admin/orders", nil)

	resp, doc := post(t, client, ts.URL+"/admin/orders/filters", url.Values{"status": {""}, "customer": {"cust-301"}}, htmxHeaders("orders-view", "customer"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"ord-1006", "ord-1004"}, orderIDs(doc))
	require.Equal(t, "cust-301", doc.Find("tr[data-order-id] mark").First().Text())

	resp, doc = post(t, client, ts.URL+"/admin/orders/filters", url.Values{"reset": {"1"}}, htmxHeaders("orders-view", "reset"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, orderIDs(doc), 7)
}

func TestOrdersFiltersWithoutJavaScriptRedirect(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)
	get(t, client, ts.URL+"/admin/orders", nil)

	resp, _ := post(t, client, ts.URL+"/admin/orders/filters", url.Values{"status": {"Cancelled"}, "customer": {"cust-301"}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/orders", resp.Header.Get("Location"))

	_, doc := get(t, client, ts.URL+"/admin/orders", nil)
	require.Equal(t, []string{"ord-1004"}, orderIDs(doc))
	require.Equal(t, "cust-301", doc.Find(`input[name="customer"]`).AttrOr("value", ""))
}

func TestOrdersRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)
	get(t, client, ts.URL+"/admin/orders", nil)

	resp, doc := post(t, client, ts.URL+"/admin/orders/filters", url.Values{"status": {"Shipped"}}, htmxHeaders("orders-view", "status"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, doc.Find(`#orders-table [role="alert"]`).Text(), "Shipped")
}

func TestOrdersPagination(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)
	get(t, client, ts.URL+"/admin/orders", nil)

	resp, doc := post(t, client, ts.URL+"/admin/orders/page-size", url.Values{"pageSize": {"10"}}, htmxHeaders("orders-view", "pageSize"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "10", doc.Find(`select[name="pageSize"] option[selected]`).AttrOr("value", ""))

	resp, _ = post(t, client, ts.URL+"/admin/orders/page-size", url.Values{"pageSize": {"15"}}, htmxHeaders("orders-view", "pageSize"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Moving past the last page leaves the listing where it is.
	resp, doc = post(t, client, ts.URL+"/admin/orders/page", url.Values{"direction": {"next"}}, htmxHeaders("orders-view", "direction"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1", doc.Find("[data-page]").AttrOr("data-page", ""))

	resp, _ = post(t, client, ts.URL+"/admin/orders/page", url.Values{"page": {"3"}}, htmxHeaders("orders-view", "page"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestOrdersTableRequiresHTMX(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	resp, _ := get(t, client, ts.URL+"/admin/orders/table", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, doc := get(t, client, ts.URL+"/admin/orders/table", htmxHeaders("orders-view", ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, doc.Find("section#orders-view").Length())
}

func TestOrderDetailAndReturnRequest(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	resp, _ := get(t, client, ts.URL+"/admin/orders/ord-9999", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, doc := get(t, client, ts.URL+"/admin/orders/ord-1000", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, doc.Find("form#return-form").Length())

	resp, doc = post(t, client, ts.URL+"/admin/returns", url.Values{"orderId": {"ord-1000"}, "reason": {"short"}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotEmpty(t, doc.Find(`[data-field-error="reason"]`).Text())
	require.Equal(t, "short", doc.Find(`textarea[name="reason"]`).Text())

	resp, _ = post(t, client, ts.URL+"/admin/returns", url.Values{"orderId": {"ord-1000"}, "reason": {"Strap broke after a week"}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/returns", resp.Header.Get("Location"))

	_, doc = get(t, client, ts.URL+"/admin/orders/ord-1000", nil)
	require.Zero(t, doc.Find("form#return-form").Length())
	require.Equal(t, "Pending", doc.Find("[data-return-status]").AttrOr("data-return-status", ""))

	resp, doc = post(t, client, ts.URL+"/admin/returns", url.Values{"orderId": {"ord-1000"}, "reason": {"Strap broke after a week"}}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, doc.Find("#order-return").Text(), "Return request already exists")

	resp, _ = post(t, client, ts.URL+"/admin/returns", url.Values{"orderId": {"ord-1004"}, "reason": {"Never arrived at all"}}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestOrderUpdateAndCancel(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	_, doc := get(t, client, ts.URL+"/admin/orders/ord-1006", nil)
	require.Equal(t, "PendingPayment", doc.Find(`#order-update-form option[selected]`).AttrOr("value", ""))

	resp, doc := post(t, client, ts.URL+"/admin/orders/ord-1006/update", url.Values{"status": {"Shipped"}, "shippingAddress": {"9 Quay St"}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotEmpty(t, testutil.TrimmedText(doc, `[data-field-error="status"]`))
	require.Equal(t, "9 Quay St", doc.Find(`textarea[name="shippingAddress"]`).Text())

	resp, _ = post(t, client, ts.URL+"/admin/orders/ord-1006/update", url.Values{"status": {"Confirmed"}, "shippingAddress": {"9 Quay St"}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/orders/ord-1006", resp.Header.Get("Location"))

	_, doc = get(t, client, ts.URL+"/admin/orders/ord-1006", nil)
	require.Equal(t, "Confirmed", doc.Find("header [data-status]").AttrOr("data-status", ""))
	require.Equal(t, "9 Quay St", doc.Find(`textarea[name="shippingAddress"]`).Text())

	resp, _ = post(t, client, ts.URL+"/admin/orders/ord-1006/cancel", url.Values{"reason": {"Customer request"}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, doc = get(t, client, ts.URL+"/admin/orders", nil)
	require.Equal(t, "2", metricValue(doc, "cancelled"))
	require.Equal(t, "1", metricValue(doc, "pending"))

	resp, doc = post(t, client, ts.URL+"/admin/orders/ord-1006/cancel", url.Values{}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "Cancelled orders cannot be changed.", testutil.TrimmedText(doc, `#order-manage [role="alert"]`))
	require.Equal(t, 1, doc.Find("[data-order-locked]").Length())

	resp, _ = post(t, client, ts.URL+"/admin/orders/ord-9999/cancel", url.Values{}, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReturnsWorkflow(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	resp, doc := get(t, client, ts.URL+"/admin/returns", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 3, doc.Find("tr[data-return-id]").Length())
	require.Equal(t, 1, doc.Find(`tr[data-return-id="ret-504"] form[data-action="approve"]`).Length())
	require.Zero(t, doc.Find(`tr[data-return-id="ret-502"] form`).Length(), "refunded returns have no actions")

	resp, doc = post(t, client, ts.URL+"/admin/returns/ret-503/reject", url.Values{"resolutionNotes": {"Outside policy"}}, htmxHeaders("returns-view", ""))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotEmpty(t, doc.Find(`tr[data-return-id="ret-503"] [role="alert"]`).Text())

	resp, doc = post(t, client, ts.URL+"/admin/returns/ret-504/reject", url.Values{"resolutionNotes": {"no"}}, htmxHeaders("returns-view", ""))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotEmpty(t, doc.Find(`tr[data-return-id="ret-504"] [data-field-error="resolutionNotes"]`).Text())

	resp, doc = post(t, client, ts.URL+"/admin/returns/ret-504/approve", url.Values{"resolutionNotes": {"Approved"}, "autoRefund": {"true"}}, htmxHeaders("returns-view", ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Zero(t, doc.Find("title").Length())
	require.Contains(t, doc.Find("[data-notice]").Text(), "ret-504")
	require.Equal(t, "Refunded", doc.Find(`tr[data-return-id="ret-504"] [data-status]`).AttrOr("data-status", ""))

	resp, _ = post(t, client, ts.URL+"/admin/returns/ret-504/refund", url.Values{"amount": {"-5"}}, htmxHeaders("returns-view", ""))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = post(t, client, ts.URL+"/admin/returns/ret-504/refund", url.Values{"amount": {"10"}}, htmxHeaders("returns-view", ""))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = post(t, client, ts.URL+"/admin/returns/ret-missing/approve", url.Values{}, htmxHeaders("returns-view", ""))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReturnsStatusFilterFromQuery(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	resp, doc := get(t, client, ts.URL+"/admin/returns?status=Refunded", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, doc.Find("tr[data-return-id]").Length())
	require.Equal(t, "Refunded", doc.Find(`select[name="status"] option[selected]`).AttrOr("value", ""))

	resp, _ = get(t, client, ts.URL+"/admin/returns?status=Lost", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, doc = get(t, client, ts.URL+"/admin/returns?status=", htmxHeaders("returns-view", "status"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 3, doc.Find("tr[data-return-id]").Length())
}

func TestOrdersSummaryAPI(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	resp, err := client.Get(ts.URL + "/admin/api/orders/summary")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var payload struct {
		Total   int `json:"total"`
		Summary struct {
			Count     int    `json:"count"`
			Pending   int    `json:"pending"`
			Confirmed int    `json:"confirmed"`
			Cancelled int    `json:"cancelled"`
			Revenue   string `json:"revenue"`
			Average   string `json:"average"`
			Currency  string `json:"currency"`
		} `json:"summary"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, 7, payload.Total)
	require.Equal(t, 7, payload.Summary.Count)
	require.Equal(t, 2, payload.Summary.Pending)
	require.Equal(t, 4, payload.Summary.Confirmed)
	require.Equal(t, 1, payload.Summary.Cancelled)
	require.Equal(t, "1400.00", payload.Summary.Revenue)
	require.Equal(t, "200.00", payload.Summary.Average)
	require.Equal(t, "USD", payload.Summary.Currency)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
}

func htmxHeaders(target, trigger string) http.Header {
	h := http.Header{}
	h.Set("HX-Request", "true")
	if target != "" {
		h.Set("HX-Target", target)
	}
	if trigger != "" {
		h.Set("HX-Trigger-Name", trigger)
	}
	return h
}

func get(t *testing.T, client *http.Client, target string, header http.Header) (*http.Response, *goquery.Document) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	return do(t, client, req, header)
}

func post(t *testing.T, client *http.Client, target string, form url.Values, header http.Header) (*http.Response, *goquery.Document) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(t, client, req, header)
}

func do(t *testing.T, client *http.Client, req *http.Request, header http.Header) (*http.Response, *goquery.Document) {
	t.Helper()

	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, testutil.ParseHTML(t, body)
}

func orderIDs(doc *goquery.Document) []string {
	return testutil.AttrValues(doc, "tr[data-order-id]", "data-order-id")
}

func metricValue(doc *goquery.Document, key string) string {
	return testutil.TrimmedText(doc, `[data-metric-value="`+key+`"]`)
}
