package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusAbandoned marks orders whose checkout attempt failed or
	// lapsed. It is internal and never surfaced through the order views.
	OrderStatusAbandoned OrderStatus = "ABANDONED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusCompleted,
	OrderStatusAbandoned,
}

// VisibleOrderStatuses are the statuses buyers and sellers can see.
var VisibleOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusCompleted,
}

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:   "Pending Payment",
	OrderStatusPaid:      "Preparing",
	OrderStatusCompleted: "Completed",
	OrderStatusAbandoned: "Abandoned",
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsVisible reports whether orders in this status appear in buyer/seller views.
func (s OrderStatus) IsVisible() bool {
	for _, candidate := range VisibleOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave this status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusAbandoned
}

// Label is the human-facing name of the status.
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ProgressStep is the highlighted index on the linear progress indicator.
// Statuses off the happy path report -1.
func (s OrderStatus) ProgressStep() int {
	for i, candidate := range VisibleOrderStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// ParseOrderStatus converts raw input into an OrderStatus, ignoring case.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// OrderStatusFilter narrows order list queries; ALL disables filtering.
type OrderStatusFilter string

const OrderStatusFilterAll OrderStatusFilter = "ALL"

// Status returns the concrete status and false for ALL.
func (f OrderStatusFilter) Status() (OrderStatus, bool) {
	if f == OrderStatusFilterAll || f == "" {
		return "", false
	}
	return OrderStatus(f), true
}

// ParseOrderStatusFilter accepts ALL (the default for empty input) or any
// visible status.
func ParseOrderStatusFilter(value string) (OrderStatusFilter, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" || normalized == string(OrderStatusFilterAll) {
		return OrderStatusFilterAll, nil
	}
	status, err := ParseOrderStatus(normalized)
	if err != nil || !status.IsVisible() {
		return "", fmt.Errorf("invalid order status filter %q", value)
	}
	return OrderStatusFilter(status), nil
}
