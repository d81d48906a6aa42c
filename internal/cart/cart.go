// Package cart keeps per-table draft carts between the menu and order
// placement. Drafts are disposable and expire after a TTL.
package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fz-restaurant/internal/apperr"
)

var ErrNoDraft = errors.New("cart draft not found")

type Item struct {
	MenuItemID          string          `json:"id"`
	Name                string          `json:"name"`
	Category            string          `json:"category,omitempty"`
	Price               decimal.Decimal `json:"price"`
	Quantity            int             `json:"quantity"`
	SpecialInstructions string          `json:"specialInstructions,omitempty"`
}

type Draft struct {
	TableID   int             `json:"tableId"`
	Items     []Item          `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (d *Draft) recompute() {
	total := decimal.Zero
	for _, it := range d.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	d.Subtotal = total
}

// Store persists drafts. Get returns ErrNoDraft for missing or expired keys.
type Store interface {
	Get(ctx context.Context, tableID int) (*Draft, error)
	Put(ctx context.Context, draft *Draft, ttl time.Duration) error
	Delete(ctx context.Context, tableID int) error
}

type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// Get returns the table's draft, or an empty one.
func (s *Service) Get(ctx context.Context, tableID int) (*Draft, error) {
	if tableID < 1 {
		return nil, apperr.Validation("invalid table id")
	}
	d, err := s.store.Get(ctx, tableID)
	if errors.Is(err, ErrNoDraft) {
		return &Draft{TableID: tableID, Items: []Item{}, Subtotal: decimal.Zero}, nil
	}
	return d, err
}

// AddItem merges item into the draft. Lines with the same menu item and
// instructions are combined.
func (s *Service) AddItem(ctx context.Context, tableID int, item Item) (*Draft, error) {
	item.Name = strings.TrimSpace(item.Name)
	switch {
	case item.MenuItemID == "":
		return nil, apperr.Validation("item id is required")
	case item.Name == "":
		return nil, apperr.Validation("item name is required")
	case item.Price.IsNegative():
		return nil, apperr.Validation("price cannot be negative")
	case item.Quantity < 1:
		return nil, apperr.Validation("quantity must be at least 1")
	}

	d, err := s.Get(ctx, tableID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range d.Items {
		if d.Items[i].MenuItemID == item.MenuItemID && d.Items[i].SpecialInstructions == item.SpecialInstructions {
			d.Items[i].Quantity += item.Quantity
			d.Items[i].Price = item.Price
			merged = true
			break
		}
	}
	if !merged {
		d.Items = append(d.Items, item)
	}
	return d, s.save(ctx, d)
}

// RemoveItem drops every line for menuItemID.
func (s *Service) RemoveItem(ctx context.Context, tableID int, menuItemID string) (*Draft, error) {
	d, err := s.Get(ctx, tableID)
	if err != nil {
		return nil, err
	}

	kept := d.Items[:0]
	for _, it := range d.Items {
		if it.MenuItemID != menuItemID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(d.Items) {
		return nil, apperr.NotFound("item %s is not in the cart", menuItemID)
	}
	d.Items = kept

	if len(d.Items) == 0 {
		if err := s.store.Delete(ctx, tableID); err != nil {
			return nil, err
		}
		d.recompute()
		return d, nil
	}
	return d, s.save(ctx, d)
}

func (s *Service) Clear(ctx context.Context, tableID int) error {
	return s.store.Delete(ctx, tableID)
}

func (s *Service) save(ctx context.Context, d *Draft) error {
	d.recompute()
	d.UpdatedAt = s.now()
	return s.store.Put(ctx, d, s.ttl)
}
