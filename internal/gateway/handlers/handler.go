package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"fz-restaurant/internal/cart"
	"fz-restaurant/internal/ordering"
	"fz-restaurant/internal/settings"
	"fz-restaurant/internal/tables"
)

type Options struct {
	RequestTimeout time.Duration
	JWTSecret      []byte
	TokenTTL       time.Duration
}

type RestaurantHTTPHandler struct {
	orders   *ordering.Service
	tables   *tables.Service
	carts    *cart.Service
	settings *settings.Service
	opts     Options
}

func NewRestaurantHTTPHandler(orders *ordering.Service, tables *tables.Service, carts *cart.Service, settings *settings.Service, opts Options) *RestaurantHTTPHandler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	return &RestaurantHTTPHandler{
		orders:   orders,
		tables:   tables,
		carts:    carts,
		settings: settings,
		opts:     opts,
	}
}

func (h *RestaurantHTTPHandler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.opts.RequestTimeout)
}
