package ordering

import (
	"context"

	log "github.com/sirupsen/logrus"

	"fz-restaurant/internal/apperr"
	"fz-restaurant/internal/database/models"
	"fz-restaurant/internal/repository"
	"fz-restaurant/internal/utils"
)

// CheckAdminPassword accepts the configured password in plaintext or as a
// bcrypt hash.
func (s *Service) CheckAdminPassword(password string) bool {
	return utils.CheckPassword(s.cfg.AdminPassword, password)
}

// DeleteOrder permanently removes an order and its items. It is the only
// destructive operation and requires the shared admin password.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64, password string) (*models.Order, error) {
	if !s.CheckAdminPassword(password) {
		log.WithField("order_id", orderID).Warn("Order delete refused: wrong admin password")
		return nil, apperr.ErrWrongPassword
	}

	var deleted *models.Order
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		order, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := tx.DeleteOrder(ctx, orderID); err != nil {
			return err
		}
		deleted = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id":     deleted.ID,
		"order_number": deleted.OrderNumber,
	}).Warn("Order deleted by admin")
	return deleted, nil
}
