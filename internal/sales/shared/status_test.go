package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCustomOrderForwardEdges(t *testing.T) {
	all := []CustomOrderStatus{CustomOrderPending, CustomOrderInProgress, CustomOrderCompleted, CustomOrderCancelled}

	allowed := map[[2]CustomOrderStatus]bool{
		{CustomOrderPending, CustomOrderInProgress}:   true,
		{CustomOrderPending, CustomOrderCancelled}:    true,
		{CustomOrderInProgress, CustomOrderCompleted}: true,
		{CustomOrderInProgress, CustomOrderCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]CustomOrderStatus{from, to}]
			require.Equal(t, want, CanTransitionCustomOrder(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, from := range []CustomOrderStatus{CustomOrderCompleted, CustomOrderCancelled} {
		require.True(t, IsTerminalCustomOrderStatus(from))
		for _, to := range []CustomOrderStatus{CustomOrderPending, CustomOrderInProgress, CustomOrderCompleted, CustomOrderCancelled} {
			require.ErrorIs(t, ValidateCustomOrderTransition(from, to), ErrInvalidTransition, "%s -> %s", from, to)
		}
	}

	for _, from := range []OrderStatus{OrderCompleted, OrderCancelled, OrderReturned} {
		require.True(t, IsTerminalOrderStatus(from))
		for to := range orderTransitions {
			require.ErrorIs(t, ValidateOrderTransition(from, to), ErrInvalidTransition, "%s -> %s", from, to)
		}
	}
}

func TestOrderLifecycleForwardOnly(t *testing.T) {
	require.NoError(t, ValidateOrderTransition(OrderPending, OrderInProgress))
	require.NoError(t, ValidateOrderTransition(OrderInProgress, OrderCompleted))
	require.NoError(t, ValidateOrderTransition(OrderPending, OrderCancelled))
	require.NoError(t, ValidateOrderTransition(OrderInProgress, OrderCancelled))
	require.NoError(t, ValidateOrderTransition(OrderShipped, OrderReturned))

	// Backward moves are never legal.
	require.ErrorIs(t, ValidateOrderTransition(OrderInProgress, OrderPending), ErrInvalidTransition)
	require.ErrorIs(t, ValidateOrderTransition(OrderDelivered, OrderShipped), ErrInvalidTransition)
	// Cancellation is only reachable before shipment.
	require.ErrorIs(t, ValidateOrderTransition(OrderShipped, OrderCancelled), ErrInvalidTransition)
	require.ErrorIs(t, ValidateOrderTransition(OrderDelivered, OrderCancelled), ErrInvalidTransition)
}

func TestParseStatuses(t *testing.T) {
	s, err := ParseOrderStatus("in_progress")
	require.NoError(t, err)
	require.Equal(t, OrderInProgress, s)

	_, err = ParseOrderStatus("IN_PROGRESS")
	require.Error(t, err)

	c, err := ParseCustomOrderStatus("cancelled")
	require.NoError(t, err)
	require.Equal(t, CustomOrderCancelled, c)

	_, err = ParseCustomOrderStatus("done")
	require.Error(t, err)
}
