package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"fz-restaurant/internal/geo"
)

type Customer struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(128);not null" json:"name"`
	Phone       string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone"`
	Email       *string         `gorm:"type:varchar(128)" json:"email,omitempty"`
	TotalOrders int             `gorm:"not null;default:0" json:"total_orders"`
	TotalSpent  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_spent"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Addresses []CustomerAddress `gorm:"foreignKey:CustomerID" json:"addresses,omitempty"`
}

func (Customer) TableName() string { return "customers" }

type CustomerAddress struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID int64     `gorm:"not null;uniqueIndex:ux_customer_addresses_address" json:"customer_id"`
	Address    string    `gorm:"type:varchar(512);not null;uniqueIndex:ux_customer_addresses_address" json:"address"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Landmark   *string   `gorm:"type:varchar(256)" json:"landmark,omitempty"`
	LastUsedAt time.Time `gorm:"not null" json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (CustomerAddress) TableName() string { return "customer_addresses" }

type Order struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber   string    `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	OrderType     OrderType `gorm:"type:varchar(16);not null;index" json:"order_type"`
	CustomerID    int64     `gorm:"not null;index" json:"customer_id"`
	CustomerName  string    `gorm:"type:varchar(128);not null" json:"customer_name"`
	CustomerPhone string    `gorm:"type:varchar(32);not null;index" json:"customer_phone"`

	TableID *int `gorm:"index" json:"table_id,omitempty"`

	DeliveryAddress  *string  `gorm:"type:text" json:"delivery_address,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Landmark         *string  `gorm:"type:varchar(256)" json:"landmark,omitempty"`
	DeliveryDistance *float64 `json:"delivery_distance,omitempty"`

	Subtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	DeliveryFee decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"delivery_fee"`
	Discount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	Total       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`

	Status        OrderStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	PaymentMethod string      `gorm:"type:varchar(32)" json:"payment_method"`
	Notes         string      `gorm:"type:text" json:"notes"`

	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is a snapshot of a menu line at the time the order was placed.
type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64           `gorm:"index;not null" json:"order_id"`
	MenuItemID          string          `gorm:"type:varchar(64)" json:"menu_item_id"`
	ItemName            string          `gorm:"type:varchar(128);not null" json:"item_name"`
	Category            string          `gorm:"type:varchar(64)" json:"category"`
	Price               decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity            int             `gorm:"not null" json:"quantity"`
	Subtotal            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	SpecialInstructions string          `gorm:"type:text" json:"special_instructions,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

type TableSession struct {
	ID            int64                `gorm:"primaryKey;autoIncrement" json:"id"`
	TableID       int                  `gorm:"not null;index" json:"table_id"`
	CustomerName  string               `gorm:"type:varchar(128)" json:"customer_name"`
	CustomerPhone string               `gorm:"type:varchar(32)" json:"customer_phone"`
	SessionStart  time.Time            `gorm:"not null" json:"session_start"`
	SessionEnd    *time.Time           `json:"session_end,omitempty"`
	Status        SessionStatus        `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalAmount   decimal.Decimal      `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	PaymentStatus SessionPaymentStatus `gorm:"type:varchar(16);not null" json:"payment_status"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func (TableSession) TableName() string { return "table_sessions" }

type TablePayment struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID       int64           `gorm:"not null;index" json:"session_id"`
	TableID         int             `gorm:"not null;index" json:"table_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentMethod   string          `gorm:"type:varchar(32);not null" json:"payment_method"`
	TransactionID   string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_id"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(16);not null;index" json:"payment_status"`
	GatewayResponse datatypes.JSON  `json:"gateway_response,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

func (TablePayment) TableName() string { return "table_payments" }

// RestaurantSettings is a single-row table (ID 1).
type RestaurantSettings struct {
	ID              int64     `gorm:"primaryKey" json:"-"`
	RestaurantName  string    `gorm:"type:varchar(128);not null" json:"restaurant_name"`
	Latitude        float64   `gorm:"not null" json:"latitude"`
	Longitude       float64   `gorm:"not null" json:"longitude"`
	TotalTables     int       `gorm:"not null" json:"total_tables"`
	DeliveryEnabled bool      `gorm:"not null" json:"delivery_enabled"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (RestaurantSettings) TableName() string { return "restaurant_settings" }

func (s RestaurantSettings) Origin() geo.Point {
	return geo.Point{Lat: s.Latitude, Lng: s.Longitude}
}

type DeliveryZone struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string          `gorm:"type:varchar(64);not null" json:"name"`
	MaxDistance    float64         `gorm:"not null" json:"max_distance"`
	DeliveryFee    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"delivery_fee"`
	EstimatedTime  int             `gorm:"not null" json:"estimated_time"`
	MinOrderAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"min_order_amount"`
	IsActive       bool            `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (DeliveryZone) TableName() string { return "delivery_zones" }

func (z DeliveryZone) ToGeo() geo.Zone {
	return geo.Zone{
		ID:             z.ID,
		Name:           z.Name,
		MaxDistance:    z.MaxDistance,
		Fee:            z.DeliveryFee,
		EstimatedTime:  z.EstimatedTime,
		MinOrderAmount: z.MinOrderAmount,
	}
}

func ZonesToGeo(zones []DeliveryZone) []geo.Zone {
	out := make([]geo.Zone, 0, len(zones))
	for _, z := range zones {
		if z.IsActive {
			out = append(out, z.ToGeo())
		}
	}
	return out
}
