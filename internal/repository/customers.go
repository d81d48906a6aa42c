package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fz-restaurant/internal/database/models"
)

// FindOrCreateCustomer returns the customer keyed by phone, creating it with
// the given name and email when absent. An existing customer is not renamed.
func (s *Store) FindOrCreateCustomer(ctx context.Context, name, phone string, email *string) (*models.Customer, error) {
	var customer models.Customer
	err := s.conn(ctx).Where("phone = ?", phone).First(&customer).Error
	if err == nil {
		if customer.Email == nil && email != nil {
			customer.Email = email
			if err := s.conn(ctx).Model(&customer).Update("email", email).Error; err != nil {
				return nil, wrap(err, "update customer email")
			}
		}
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrap(err, "find customer")
	}

	customer = models.Customer{
		Name:       name,
		Phone:      phone,
		Email:      email,
		TotalSpent: decimal.Zero,
	}
	if err := s.conn(ctx).Create(&customer).Error; err != nil {
		return nil, wrap(err, "create customer")
	}
	return &customer, nil
}

// AddCustomerSpend increments the running order count and spend.
func (s *Store) AddCustomerSpend(ctx context.Context, customerID int64, amount decimal.Decimal) error {
	res := s.conn(ctx).Model(&models.Customer{}).
		Where("id = ?", customerID).
		Updates(map[string]interface{}{
			"total_orders": gorm.Expr("total_orders + ?", 1),
			"total_spent":  gorm.Expr("total_spent + ?", amount),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return wrap(res.Error, "update customer totals")
	}
	if res.RowsAffected == 0 {
		return wrap(gorm.ErrRecordNotFound, fmt.Sprintf("customer %d", customerID))
	}
	return nil
}

func (s *Store) CustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	err := s.conn(ctx).
		Preload("Addresses", func(db *gorm.DB) *gorm.DB {
			return db.Order("last_used_at DESC")
		}).
		Where("phone = ?", phone).
		First(&customer).Error
	if err != nil {
		return nil, wrap(err, fmt.Sprintf("customer %s", phone))
	}
	return &customer, nil
}

// UpsertCustomerAddress records a delivery address, refreshing coordinates and
// last use when the customer has delivered to the same address before.
func (s *Store) UpsertCustomerAddress(ctx context.Context, addr *models.CustomerAddress) error {
	var existing models.CustomerAddress
	err := s.conn(ctx).
		Where("customer_id = ? AND address = ?", addr.CustomerID, addr.Address).
		First(&existing).Error
	switch {
	case err == nil:
		addr.ID = existing.ID
		addr.CreatedAt = existing.CreatedAt
		if err := s.conn(ctx).Save(addr).Error; err != nil {
			return wrap(err, "update customer address")
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.conn(ctx).Create(addr).Error; err != nil {
			return wrap(err, "create customer address")
		}
		return nil
	default:
		return wrap(err, "find customer address")
	}
}
