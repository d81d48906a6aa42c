package ordering

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"fz-restaurant/internal/apperr"
	"fz-restaurant/internal/database/models"
	"fz-restaurant/internal/geo"
	"fz-restaurant/internal/realtime"
	"fz-restaurant/internal/repository"
)

type ItemInput struct {
	MenuItemID          string          `json:"id"`
	Name                string          `json:"name"`
	Category            string          `json:"category"`
	Price               decimal.Decimal `json:"price"`
	Quantity            int             `json:"quantity"`
	SpecialInstructions string          `json:"specialInstructions"`
}

type CreateOrderInput struct {
	OrderType     models.OrderType `json:"orderType"`
	CustomerName  string           `json:"customerName"`
	CustomerPhone string           `json:"phone"`
	CustomerEmail *string          `json:"email,omitempty"`

	TableID *int `json:"tableId,omitempty"`

	DeliveryAddress *string  `json:"address,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Landmark        *string  `json:"landmark,omitempty"`
	// DeliveryFee overrides the zone fee when set.
	DeliveryFee *decimal.Decimal `json:"deliveryFee,omitempty"`

	Discount      decimal.Decimal `json:"discount"`
	PaymentMethod string          `json:"paymentMethod"`
	Notes         string          `json:"notes"`
	Items         []ItemInput     `json:"items"`
}

func (in CreateOrderInput) destination() *geo.Point {
	if in.Latitude == nil || in.Longitude == nil {
		return nil
	}
	return &geo.Point{Lat: *in.Latitude, Lng: *in.Longitude}
}

// CreateOrder validates and prices the input, then persists the order, its
// items, the customer totals and the table session in one transaction.
// Unique-key collisions (order number, concurrent first session for a table,
// concurrent first order of a new customer) retry the whole transaction.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.DeliveryZones(ctx)
	if err != nil {
		return nil, err
	}
	zones := models.ZonesToGeo(rows)

	draft, err := s.build(in, settings, zones)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	for attempt := 0; attempt < s.cfg.NumberAttempts; attempt++ {
		// a rolled back attempt leaves ids and the number on the struct
		order = cloneOrder(draft)
		err = s.store.Transaction(ctx, func(tx *repository.Store) error {
			return s.persist(ctx, tx, order, in, attempt)
		})
		if err == nil {
			break
		}
		if !repository.IsDuplicate(err) || attempt == s.cfg.NumberAttempts-1 {
			log.WithError(err).WithField("phone", in.CustomerPhone).Error("Failed to create order")
			return nil, err
		}
		log.WithFields(log.Fields{
			"attempt":      attempt + 1,
			"order_number": order.OrderNumber,
		}).Warn("Order create collided, retrying")
	}

	log.WithFields(log.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"order_type":   order.OrderType,
		"total":        order.Total.StringFixed(2),
	}).Info("Order created")

	realtime.Notify(ctx, s.publisher, realtime.EventNewOrder, order)
	return order, nil
}

func (s *Service) persist(ctx context.Context, tx *repository.Store, order *models.Order, in CreateOrderInput, attempt int) error {
	now := s.now()

	customer, err := tx.FindOrCreateCustomer(ctx, order.CustomerName, order.CustomerPhone, in.CustomerEmail)
	if err != nil {
		return err
	}
	order.CustomerID = customer.ID

	number, err := s.nextOrderNumber(ctx, tx, now, attempt)
	if err != nil {
		return err
	}
	order.OrderNumber = number

	if err := tx.CreateOrder(ctx, order); err != nil {
		return err
	}
	if err := tx.AddCustomerSpend(ctx, customer.ID, order.Total); err != nil {
		return err
	}

	switch order.OrderType {
	case models.OrderTypeDelivery:
		return tx.UpsertCustomerAddress(ctx, &models.CustomerAddress{
			CustomerID: customer.ID,
			Address:    *order.DeliveryAddress,
			Latitude:   order.Latitude,
			Longitude:  order.Longitude,
			Landmark:   order.Landmark,
			LastUsedAt: now,
		})
	default:
		return s.attachToSession(ctx, tx, order, now)
	}
}

// attachToSession adds a dine-in order to its table's running session,
// opening one in the ordering state when the table is empty.
func (s *Service) attachToSession(ctx context.Context, tx *repository.Store, order *models.Order, now time.Time) error {
	session, err := tx.ActiveSession(ctx, *order.TableID)
	if errors.Is(err, apperr.ErrNotFound) {
		return tx.CreateSession(ctx, &models.TableSession{
			TableID:       *order.TableID,
			CustomerName:  order.CustomerName,
			CustomerPhone: order.CustomerPhone,
			SessionStart:  now,
			Status:        models.SessionOrdering,
			TotalAmount:   order.Total,
			PaymentStatus: models.SessionUnpaid,
		})
	}
	if err != nil {
		return err
	}

	session.TotalAmount = session.TotalAmount.Add(order.Total)
	if session.Status == models.SessionOccupied {
		session.Status = models.SessionOrdering
	}
	if session.CustomerName == "" {
		session.CustomerName = order.CustomerName
		session.CustomerPhone = order.CustomerPhone
	}
	return tx.SaveSession(ctx, session)
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = make([]models.OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}

// build validates the input and returns an unsaved order with priced items.
func (s *Service) build(in CreateOrderInput, settings *models.RestaurantSettings, zones []geo.Zone) (*models.Order, error) {
	name := strings.TrimSpace(in.CustomerName)
	phone := strings.TrimSpace(in.CustomerPhone)
	if name == "" || phone == "" {
		return nil, apperr.Validation("customerName and phone are required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}

	orderType := in.OrderType
	if orderType == "" {
		if in.TableID != nil {
			orderType = models.OrderTypeDineIn
		} else {
			orderType = models.OrderTypeDelivery
		}
	}
	if !orderType.Valid() {
		return nil, apperr.Validation("unknown orderType %q", in.OrderType)
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	subtotal := decimal.Zero
	for i, it := range in.Items {
		if strings.TrimSpace(it.Name) == "" {
			return nil, apperr.Validation("item %d: name is required", i+1)
		}
		if it.Price.IsNegative() {
			return nil, apperr.Validation("item %d: price cannot be negative", i+1)
		}
		if it.Quantity < 1 {
			return nil, apperr.Validation("item %d: quantity must be at least 1", i+1)
		}
		price := it.Price.Round(2)
		line := price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
		items = append(items, models.OrderItem{
			MenuItemID:          it.MenuItemID,
			ItemName:            strings.TrimSpace(it.Name),
			Category:            it.Category,
			Price:               price,
			Quantity:            it.Quantity,
			Subtotal:            line,
			SpecialInstructions: it.SpecialInstructions,
		})
	}

	order := &models.Order{
		OrderType:     orderType,
		CustomerName:  name,
		CustomerPhone: phone,
		Subtotal:      subtotal,
		DeliveryFee:   decimal.Zero,
		Status:        models.OrderPending,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		Items:         items,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = "cash"
	}

	switch orderType {
	case models.OrderTypeDineIn:
		if in.TableID == nil {
			return nil, apperr.Validation("tableId is required for dine-in orders")
		}
		if *in.TableID < 1 || *in.TableID > settings.TotalTables {
			return nil, apperr.Validation("tableId must be between 1 and %d", settings.TotalTables)
		}
		table := *in.TableID
		order.TableID = &table

	case models.OrderTypeDelivery:
		if !settings.DeliveryEnabled {
			return nil, apperr.Validation("delivery is currently unavailable")
		}
		if in.DeliveryAddress == nil || strings.TrimSpace(*in.DeliveryAddress) == "" {
			return nil, apperr.Validation("address is required for delivery orders")
		}
		address := strings.TrimSpace(*in.DeliveryAddress)
		order.DeliveryAddress = &address
		order.Landmark = in.Landmark

		quote := geo.QuoteDelivery(settings.Origin(), in.destination(), zones)
		if quote.HasCoordinates {
			if !quote.Available {
				return nil, apperr.ErrOutsideDeliveryArea
			}
			if subtotal.LessThan(quote.Zone.MinOrderAmount) {
				return nil, apperr.Validation("minimum order for %s delivery is %s",
					quote.Zone.Name, quote.Zone.MinOrderAmount.StringFixed(2))
			}
			lat, lng, distance := *in.Latitude, *in.Longitude, quote.DistanceKm
			order.Latitude = &lat
			order.Longitude = &lng
			order.DeliveryDistance = &distance
		}
		order.DeliveryFee = quote.Fee
		if in.DeliveryFee != nil {
			if in.DeliveryFee.IsNegative() {
				return nil, apperr.Validation("deliveryFee cannot be negative")
			}
			order.DeliveryFee = in.DeliveryFee.Round(2)
		}
	}

	gross := subtotal.Add(order.DeliveryFee)
	discount := in.Discount.Round(2)
	if discount.IsNegative() || discount.GreaterThan(gross) {
		return nil, apperr.Validation("discount must be between 0 and %s", gross.StringFixed(2))
	}
	order.Discount = discount
	order.Total = gross.Sub(discount)

	return order, nil
}
