// Package shared holds the status lifecycles common to sales modules.
package shared

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for any move the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUnknownStatus is returned for status strings outside either lifecycle.
var ErrUnknownStatus = errors.New("unknown status")

// OrderStatus is the fulfillment axis of a standard order. It is independent
// of the payment axis.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderInProgress OrderStatus = "in_progress"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderReturned   OrderStatus = "returned"
)

// orderTransitions enumerates the forward edges of the fulfillment lifecycle.
// Terminal states have no outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderInProgress, OrderCancelled},
	OrderProcessing: {OrderInProgress, OrderShipped, OrderCancelled},
	OrderInProgress: {OrderShipped, OrderDelivered, OrderCompleted, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderReturned},
	OrderDelivered:  {OrderCompleted, OrderReturned},
	OrderCompleted:  nil,
	OrderCancelled:  nil,
	OrderReturned:   nil,
}

// CustomOrderStatus is the lifecycle of a bespoke production request.
type CustomOrderStatus string

const (
	CustomOrderPending    CustomOrderStatus = "pending"
	CustomOrderInProgress CustomOrderStatus = "in_progress"
	CustomOrderCompleted  CustomOrderStatus = "completed"
	CustomOrderCancelled  CustomOrderStatus = "cancelled"
)

var customOrderTransitions = map[CustomOrderStatus][]CustomOrderStatus{
	CustomOrderPending:    {CustomOrderInProgress, CustomOrderCancelled},
	CustomOrderInProgress: {CustomOrderCompleted, CustomOrderCancelled},
	CustomOrderCompleted:  nil,
	CustomOrderCancelled:  nil,
}

// ParseOrderStatus validates an order status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := orderTransitions[status]; !ok {
		return "", fmt.Errorf("%w: order status %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// ParseCustomOrderStatus validates a custom-order status string.
func ParseCustomOrderStatus(s string) (CustomOrderStatus, error) {
	status := CustomOrderStatus(s)
	if _, ok := customOrderTransitions[status]; !ok {
		return "", fmt.Errorf("%w: custom order status %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// CanTransitionOrder reports whether from -> to is a legal fulfillment move.
func CanTransitionOrder(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateOrderTransition returns ErrInvalidTransition for illegal moves.
func ValidateOrderTransition(from, to OrderStatus) error {
	if !CanTransitionOrder(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CanTransitionCustomOrder reports whether from -> to is legal.
func CanTransitionCustomOrder(from, to CustomOrderStatus) bool {
	for _, next := range customOrderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateCustomOrderTransition returns ErrInvalidTransition for illegal moves.
func ValidateCustomOrderTransition(from, to CustomOrderStatus) error {
	if !CanTransitionCustomOrder(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminalOrderStatus reports whether no further transitions are allowed.
func IsTerminalOrderStatus(s OrderStatus) bool {
	return len(orderTransitions[s]) == 0
}

// IsTerminalCustomOrderStatus reports whether no further transitions are allowed.
func IsTerminalCustomOrderStatus(s CustomOrderStatus) bool {
	return len(customOrderTransitions[s]) == 0
}
