package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/domain"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// UpdateStatus moves the order to status if the transition table allows it.
// The write is a compare-and-set on the status that was read, so two admins
// racing on the same order cannot both trigger the side effects.
func (s *OrdersService) UpdateStatus(ctx context.Context, orderID uint, status string) (order domain.Orders, err error) {
	ctx, span := tracer.Start(ctx, "orders.UpdateStatus")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	status = strings.TrimSpace(status)
	var missing []string
	if orderID == 0 {
		missing = append(missing, "orderId")
	}
	if status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return domain.Orders{}, domain.NewMissingFieldsError(missing...)
	}

	next := domain.OrderStatus(status)
	if !next.Valid() {
		return domain.Orders{}, domain.NewValidationError("status", fmt.Sprintf("unknown order status %q", status))
	}
	span.SetAttributes(attribute.Int("order.id", int(orderID)), attribute.String("order.status", status))

	order, err = s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error("Failed to get order", err, "order_id", orderID)
		}
		return domain.Orders{}, err
	}

	if !order.OrderStatus.CanTransitionTo(next) {
		return domain.Orders{}, fmt.Errorf("%w: %s to %s", domain.ErrInvalidStatusTransition, order.OrderStatus, next)
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, order.OrderStatus, next); err != nil {
		if !errors.Is(err, domain.ErrInvalidStatusTransition) && !errors.Is(err, domain.ErrNotFound) {
			logger.Error("Failed to update order status", err, "order_id", orderID)
		}
		return domain.Orders{}, err
	}

	order.OrderStatus = next
	metrics.OrderStatusChanges.WithLabelValues(string(next)).Inc()
	logger.Info("Order status updated", "order_id", orderID, "status", string(next))

	s.notifyStatusChange(ctx, order)

	return order, nil
}
