package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"fz-restaurant/internal/database/models"
)

type OrderFilter struct {
	Status    *models.OrderStatus
	OrderType *models.OrderType
	TableID   *int
	Limit     int
}

type HistoryFilter struct {
	CustomerPhone string
	// From is inclusive, To is exclusive.
	From *time.Time
	To   *time.Time
	Limit int
}

var historyStatuses = []models.OrderStatus{models.OrderCompleted, models.OrderCancelled}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// CountOrdersWithPrefix counts order numbers sharing a day prefix such as
// "FZ-20240131-".
func (s *Store) CountOrdersWithPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Order{}).
		Where("order_number LIKE ?", prefix+"%").
		Count(&count).Error
	if err != nil {
		return 0, wrap(err, "count today's orders")
	}
	return count, nil
}

// CreateOrder inserts the header and its items in one statement batch.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := s.conn(ctx).Create(order).Error; err != nil {
		return wrap(err, "insert order")
	}
	return nil
}

func (s *Store) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := withItems(s.conn(ctx)).First(&order, id).Error; err != nil {
		return nil, wrap(err, fmt.Sprintf("order %d", id))
	}
	return &order, nil
}

// LockOrder reads an order header for update inside a transaction.
func (s *Store) LockOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := forUpdate(s.conn(ctx)).First(&order, id).Error; err != nil {
		return nil, wrap(err, fmt.Sprintf("order %d", id))
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := withItems(s.conn(ctx)).Model(&models.Order{})
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.OrderType != nil {
		q = q.Where("order_type = ?", *f.OrderType)
	}
	if f.TableID != nil {
		q = q.Where("table_id = ?", *f.TableID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	orders := []models.Order{}
	if err := q.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, wrap(err, "list orders")
	}
	return orders, nil
}

func (s *Store) OpenOrdersForTable(ctx context.Context, tableID int) ([]models.Order, error) {
	orders := []models.Order{}
	err := withItems(s.conn(ctx)).
		Where("table_id = ? AND status IN ?", tableID, models.OpenOrderStatuses).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, wrap(err, fmt.Sprintf("open orders for table %d", tableID))
	}
	return orders, nil
}

// OrderHistory lists completed and cancelled orders, newest first.
func (s *Store) OrderHistory(ctx context.Context, f HistoryFilter) ([]models.Order, error) {
	q := withItems(s.conn(ctx)).Where("status IN ?", historyStatuses)
	if f.CustomerPhone != "" {
		q = q.Where("customer_phone = ?", f.CustomerPhone)
	}
	// gorm stamps created_at in local time
	if f.From != nil {
		q = q.Where("created_at >= ?", f.From.Local())
	}
	if f.To != nil {
		q = q.Where("created_at < ?", f.To.Local())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	orders := []models.Order{}
	if err := q.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, wrap(err, "order history")
	}
	return orders, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus, completedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}

	res := s.conn(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrap(res.Error, fmt.Sprintf("update order %d status", id))
	}
	if res.RowsAffected == 0 {
		return wrap(gorm.ErrRecordNotFound, fmt.Sprintf("order %d", id))
	}
	return nil
}

// CompleteTableOrders closes every open order of a table and returns how many
// rows moved.
func (s *Store) CompleteTableOrders(ctx context.Context, tableID int, at time.Time) (int64, error) {
	res := s.conn(ctx).Model(&models.Order{}).
		Where("table_id = ? AND status IN ?", tableID, models.OpenOrderStatuses).
		Updates(map[string]interface{}{
			"status":       models.OrderCompleted,
			"completed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return 0, wrap(res.Error, fmt.Sprintf("complete orders for table %d", tableID))
	}
	return res.RowsAffected, nil
}

// DeleteOrder removes an order and its items. Items are deleted explicitly so
// the result does not depend on the dialect enforcing ON DELETE CASCADE.
func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.conn(ctx).Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return wrap(err, fmt.Sprintf("delete items of order %d", id))
	}
	res := s.conn(ctx).Delete(&models.Order{}, id)
	if res.Error != nil {
		return wrap(res.Error, fmt.Sprintf("delete order %d", id))
	}
	if res.RowsAffected == 0 {
		return wrap(gorm.ErrRecordNotFound, fmt.Sprintf("order %d", id))
	}
	return nil
}

func (s *Store) CountOrderItems(ctx context.Context, orderID int64) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.OrderItem{}).Where("order_id = ?", orderID).Count(&count).Error
	if err != nil {
		return 0, wrap(err, "count order items")
	}
	return count, nil
}
