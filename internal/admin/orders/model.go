package orders

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a snapshot of an order as returned by the backend.
type Order struct {
	ID              string        `json:"id"`
	TenantID        string        `json:"tenantId,omitempty"`
	CustomerID      string        `json:"customerId,omitempty"`
	Status          OrderStatus   `json:"status"`
	Items           []OrderItem   `json:"items"`
	Total           Money         `json:"total"`
	Audit           AuditMetadata `json:"audit"`
	CreatedDate     *Timestamp    `json:"createdDate,omitempty"`
	ShippingAddress string        `json:"shippingAddress,omitempty"`
}

// OrderItem is a single order line.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unitPrice"`
}

// PlacedAt returns the best known creation time of the order.
func (o Order) PlacedAt() time.Time {
	if o.CreatedDate != nil && !o.CreatedDate.IsZero() {
		return o.CreatedDate.Time
	}
	return o.Audit.CreatedDate.Time
}

// ItemCount sums the quantities across all lines.
func (o Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// AuditMetadata records who created and last modified an entity.
type AuditMetadata struct {
	CreatedBy    string    `json:"createdBy"`
	CreatedDate  Timestamp `json:"createdDate"`
	ModifiedBy   string    `json:"modifiedBy"`
	ModifiedDate Timestamp `json:"modifiedDate"`
}

// ReturnRequest is a snapshot of a return request as returned by the backend.
type ReturnRequest struct {
	ID                  string              `json:"id"`
	OrderID             string              `json:"orderId"`
	CustomerID          string              `json:"customerId"`
	Reason              string              `json:"reason"`
	ResolutionNotes     string              `json:"resolutionNotes,omitempty"`
	Status              ReturnStatus        `json:"status"`
	RefundTransactionID *string             `json:"refundTransactionId,omitempty"`
	RefundAmount        *decimal.Decimal    `json:"refundAmount,omitempty"`
	RefundCurrency      *string             `json:"refundCurrency,omitempty"`
	Audit               AuditMetadata       `json:"audit"`
	Customer            *ReturnCustomer     `json:"customer,omitempty"`
	Order               *ReturnOrderSummary `json:"order,omitempty"`
}

// ReturnCustomer is the customer embedded in a return request.
type ReturnCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// ReturnOrderSummary is the order snapshot denormalised into a return request.
// Status is kept raw; callers parse it when they need the flags.
type ReturnOrderSummary struct {
	ID              string            `json:"id"`
	Status          string            `json:"status"`
	Total           Money             `json:"total"`
	PlacedAt        Timestamp         `json:"placedAt"`
	ShippingAddress string            `json:"shippingAddress,omitempty"`
	ItemCount       int               `json:"itemCount"`
	Items           []ReturnOrderItem `json:"items"`
}

// ReturnOrderItem is a line of the denormalised order snapshot.
type ReturnOrderItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	SKU         string `json:"sku,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unitPrice"`
	LineTotal   Money  `json:"lineTotal"`
}

// OrderPage is one page of orders.
type OrderPage struct {
	Items    []Order `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// ReturnPage is one page of return requests.
type ReturnPage struct {
	Items    []ReturnRequest `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

// OrderQuery narrows an order listing.
type OrderQuery struct {
	Page       int
	PageSize   int
	CustomerID string
}

// ReturnQuery narrows a return listing.
type ReturnQuery struct {
	Page     int
	PageSize int
	Status   ReturnStatus
}

// ReturnCreate is the payload for opening a return request.
type ReturnCreate struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// ReturnDecision is the payload for approving a return.
type ReturnDecision struct {
	ResolutionNotes string           `json:"resolutionNotes,omitempty"`
	AutoRefund      bool             `json:"autoRefund"`
	RefundAmount    *decimal.Decimal `json:"refundAmount,omitempty"`
}

// ReturnRejection is the payload for rejecting a return.
type ReturnRejection struct {
	ResolutionNotes string `json:"resolutionNotes"`
}

// ReturnRefund is the payload for refunding a return.
type ReturnRefund struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp accepts both zoned and naive ISO-8601 values. Naive values are treated as UTC.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON parses the supported layouts; null and empty strings yield the zero time.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			*t = Timestamp{Time: parsed.UTC()}
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported value %q", raw)
}

// MarshalJSON renders the timestamp in RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
