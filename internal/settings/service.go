// Package settings serves the restaurant profile, the delivery zone table
// and delivery quotes.
package settings

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"fz-restaurant/internal/apperr"
	"fz-restaurant/internal/database/models"
	"fz-restaurant/internal/geo"
	"fz-restaurant/internal/realtime"
	"fz-restaurant/internal/repository"
)

type Service struct {
	store     *repository.Store
	publisher realtime.Publisher
}

func NewService(store *repository.Store, publisher realtime.Publisher) *Service {
	if publisher == nil {
		publisher = realtime.Nop
	}
	return &Service{store: store, publisher: publisher}
}

// Update carries a partial settings change; nil fields are left alone.
type Update struct {
	RestaurantName  *string  `json:"restaurant_name"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	TotalTables     *int     `json:"total_tables"`
	DeliveryEnabled *bool    `json:"delivery_enabled"`
}

type ZoneInput struct {
	Name           string          `json:"name"`
	MaxDistance    float64         `json:"max_distance"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	EstimatedTime  int             `json:"estimated_time"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	IsActive       *bool           `json:"is_active"`
}

type QuoteResult struct {
	geo.Quote
	EstimatedTime  int             `json:"estimated_time,omitempty"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	// MeetsMinimum is only meaningful when a subtotal was supplied.
	MeetsMinimum bool `json:"meets_minimum"`
	Enabled      bool `json:"delivery_enabled"`
}

func (s *Service) Settings(ctx context.Context) (*models.RestaurantSettings, error) {
	return s.store.Settings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, u Update) (*models.RestaurantSettings, error) {
	var updated *models.RestaurantSettings
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		if u.RestaurantName != nil {
			name := strings.TrimSpace(*u.RestaurantName)
			if name == "" {
				return apperr.Validation("restaurant_name cannot be empty")
			}
			current.RestaurantName = name
		}
		if u.Latitude != nil {
			current.Latitude = *u.Latitude
		}
		if u.Longitude != nil {
			current.Longitude = *u.Longitude
		}
		if origin := current.Origin(); !origin.Valid() {
			return apperr.Validation("restaurant coordinates are invalid")
		}
		if u.TotalTables != nil {
			if *u.TotalTables < 1 {
				return apperr.Validation("total_tables must be at least 1")
			}
			current.TotalTables = *u.TotalTables
		}
		if u.DeliveryEnabled != nil {
			current.DeliveryEnabled = *u.DeliveryEnabled
		}
		updated = current
		return tx.SaveSettings(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	log.WithField("tables", updated.TotalTables).Info("Restaurant settings updated")
	realtime.Notify(ctx, s.publisher, realtime.EventSettingsUpdated, updated)
	return updated, nil
}

func (s *Service) Zones(ctx context.Context) ([]models.DeliveryZone, error) {
	return s.store.DeliveryZones(ctx)
}

// ReplaceZones swaps the zone table. Thresholds must be positive and
// distinct, and fees must not decrease with distance.
func (s *Service) ReplaceZones(ctx context.Context, inputs []ZoneInput) ([]models.DeliveryZone, error) {
	if len(inputs) == 0 {
		return nil, apperr.Validation("at least one delivery zone is required")
	}

	rows := make([]models.DeliveryZone, 0, len(inputs))
	checks := make([]geo.Zone, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, apperr.Validation("zone %d: name is required", i+1)
		}
		if in.EstimatedTime < 0 {
			return nil, apperr.Validation("zone %d: estimated_time cannot be negative", i+1)
		}
		active := true
		if in.IsActive != nil {
			active = *in.IsActive
		}
		row := models.DeliveryZone{
			Name:           name,
			MaxDistance:    in.MaxDistance,
			DeliveryFee:    in.DeliveryFee.Round(2),
			EstimatedTime:  in.EstimatedTime,
			MinOrderAmount: in.MinOrderAmount.Round(2),
			IsActive:       active,
		}
		rows = append(rows, row)
		checks = append(checks, row.ToGeo())
	}
	if problems := geo.ValidateZones(checks); len(problems) > 0 {
		return nil, apperr.Validation("%s", strings.Join(problems, "; "))
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		return tx.ReplaceDeliveryZones(ctx, rows)
	})
	if err != nil {
		return nil, err
	}

	zones, err := s.store.DeliveryZones(ctx)
	if err != nil {
		return nil, err
	}
	log.WithField("zones", len(zones)).Info("Delivery zones replaced")
	realtime.Notify(ctx, s.publisher, realtime.EventSettingsUpdated, map[string]interface{}{"deliveryZones": zones})
	return zones, nil
}

// Quote prices a delivery to dest. subtotal is optional.
func (s *Service) Quote(ctx context.Context, dest *geo.Point, subtotal *decimal.Decimal) (*QuoteResult, error) {
	if dest != nil && !dest.Valid() {
		return nil, apperr.Validation("lat and lng must be valid coordinates")
	}

	settings, err := s.store.Settings(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.DeliveryZones(ctx)
	if err != nil {
		return nil, err
	}

	q := geo.QuoteDelivery(settings.Origin(), dest, models.ZonesToGeo(rows))
	res := &QuoteResult{
		Quote:          q,
		MinOrderAmount: decimal.Zero,
		MeetsMinimum:   true,
		Enabled:        settings.DeliveryEnabled,
	}
	if q.Zone != nil {
		res.EstimatedTime = q.Zone.EstimatedTime
		res.MinOrderAmount = q.Zone.MinOrderAmount
		if subtotal != nil {
			res.MeetsMinimum = !subtotal.LessThan(q.Zone.MinOrderAmount)
		}
	}
	if !settings.DeliveryEnabled {
		res.Available = false
	}
	return res, nil
}
