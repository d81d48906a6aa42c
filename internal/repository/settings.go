package repository

import (
	"context"

	"fz-restaurant/internal/database/models"
)

const settingsRowID = 1

func (s *Store) Settings(ctx context.Context) (*models.RestaurantSettings, error) {
	var settings models.RestaurantSettings
	if err := s.conn(ctx).First(&settings, settingsRowID).Error; err != nil {
		return nil, wrap(err, "restaurant settings")
	}
	return &settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings *models.RestaurantSettings) error {
	settings.ID = settingsRowID
	return wrap(s.conn(ctx).Save(settings).Error, "save restaurant settings")
}

// DeliveryZones returns all zones ordered by ascending max distance.
func (s *Store) DeliveryZones(ctx context.Context) ([]models.DeliveryZone, error) {
	zones := []models.DeliveryZone{}
	if err := s.conn(ctx).Order("max_distance ASC").Find(&zones).Error; err != nil {
		return nil, wrap(err, "list delivery zones")
	}
	return zones, nil
}

// ReplaceDeliveryZones swaps the whole zone table. Call it inside Transaction.
func (s *Store) ReplaceDeliveryZones(ctx context.Context, zones []models.DeliveryZone) error {
	if err := s.conn(ctx).Where("1 = 1").Delete(&models.DeliveryZone{}).Error; err != nil {
		return wrap(err, "clear delivery zones")
	}
	if len(zones) == 0 {
		return nil
	}
	return wrap(s.conn(ctx).Create(&zones).Error, "insert delivery zones")
}
