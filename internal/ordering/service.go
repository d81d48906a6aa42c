// Package ordering builds, numbers, transitions and deletes orders.
//
// Every mutation runs in one repository transaction and is broadcast only
// after the commit succeeds.
package ordering

import (
	"context"
	"time"

	"fz-restaurant/internal/apperr"
	"fz-restaurant/internal/database/models"
	"fz-restaurant/internal/realtime"
	"fz-restaurant/internal/repository"
)

type Config struct {
	AdminPassword string
	// Location decides the calendar day in order numbers. Defaults to UTC.
	Location *time.Location
	// NumberAttempts bounds the order-number retry loop. The final attempt
	// always uses a timestamp suffix.
	NumberAttempts int
}

type Service struct {
	store     *repository.Store
	publisher realtime.Publisher
	cfg       Config
	now       func() time.Time
}

func NewService(store *repository.Store, publisher realtime.Publisher, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.NumberAttempts < 1 {
		cfg.NumberAttempts = 5
	}
	if publisher == nil {
		publisher = realtime.Nop
	}
	return &Service{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *Service) Order(ctx context.Context, id int64) (*models.Order, error) {
	return s.store.OrderByID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, f repository.OrderFilter) ([]models.Order, error) {
	return s.store.ListOrders(ctx, f)
}

type HistoryQuery struct {
	CustomerPhone string
	// StartDate and EndDate are inclusive calendar days, YYYY-MM-DD, in the
	// restaurant time zone. Either may be empty.
	StartDate string
	EndDate   string
}

func (s *Service) History(ctx context.Context, q HistoryQuery) ([]models.Order, error) {
	f := repository.HistoryFilter{CustomerPhone: q.CustomerPhone}
	if q.StartDate != "" {
		from, err := time.ParseInLocation("2006-01-02", q.StartDate, s.cfg.Location)
		if err != nil {
			return nil, apperr.Validation("startDate must be YYYY-MM-DD")
		}
		f.From = &from
	}
	if q.EndDate != "" {
		end, err := time.ParseInLocation("2006-01-02", q.EndDate, s.cfg.Location)
		if err != nil {
			return nil, apperr.Validation("endDate must be YYYY-MM-DD")
		}
		to := end.AddDate(0, 0, 1)
		f.To = &to
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, apperr.Validation("startDate must not be after endDate")
	}
	return s.store.OrderHistory(ctx, f)
}

func (s *Service) Customer(ctx context.Context, phone string) (*models.Customer, error) {
	return s.store.CustomerByPhone(ctx, phone)
}
