package ordering

import (
	"context"

	log "github.com/sirupsen/logrus"

	"fz-restaurant/internal/apperr"
	"fz-restaurant/internal/database/models"
	"fz-restaurant/internal/realtime"
	"fz-restaurant/internal/repository"
)

type StatusUpdate struct {
	OrderID int64              `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
}

// UpdateStatus moves an order along pending → preparing → ready → completed,
// or to cancelled from any open status. Writing the current status again is a
// no-op that is not broadcast.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	if status == "" {
		return nil, apperr.Validation("status is required")
	}
	if !status.Valid() {
		return nil, apperr.Validation("unknown status %q", status)
	}

	changed := false
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if current.Status == status {
			return nil
		}
		if !current.Status.CanTransitionTo(status) {
			log.WithFields(log.Fields{
				"order_id": orderID,
				"from":     current.Status,
				"to":       status,
			}).Warn("Rejected order status transition")
			return apperr.ErrInvalidTransition
		}

		changed = true
		if status.Terminal() {
			at := s.now()
			return tx.UpdateOrderStatus(ctx, orderID, status, &at)
		}
		return tx.UpdateOrderStatus(ctx, orderID, status, nil)
	})
	if err != nil {
		return nil, err
	}

	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if changed {
		log.WithFields(log.Fields{"order_id": orderID, "status": status}).Info("Order status updated")
		realtime.Notify(ctx, s.publisher, realtime.EventOrderStatusUpdated, StatusUpdate{OrderID: orderID, Status: status})
	}
	return order, nil
}
