// Package gateway assembles the HTTP surface: middleware, public routes, the
// admin group and the kitchen websocket.
package gateway

import (
	"github.com/gin-gonic/gin"

	"fz-restaurant/internal/gateway/handlers"
	"fz-restaurant/internal/gateway/middleware"
	"fz-restaurant/internal/realtime"
)

type RouterConfig struct {
	AllowedOrigins string
	OrderRateLimit string
	JWTSecret      []byte
}

func NewRouter(h *handlers.RestaurantHTTPHandler, hub *realtime.Hub, cfg RouterConfig) (*gin.Engine, error) {
	orderLimit, err := middleware.RateLimit(cfg.OrderRateLimit)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	api := r.Group("/api")
	{
		api.POST("/order", orderLimit, h.CreateOrder)
		api.DELETE("/order/:id", h.DeleteOrder)
		api.GET("/orders", h.ListOrders)
		api.GET("/orders/:id", h.GetOrder)
		api.PUT("/orders/:id/status", h.UpdateOrderStatus)
		api.GET("/order-history", h.OrderHistory)
		api.GET("/customers/:phone", h.GetCustomer)

		api.POST("/clear-table/:tableId", h.ClearTable)

		tables := api.Group("/tables")
		{
			tables.GET("", h.ListTables)
			tables.POST("/:id/session", h.CreateSession)
			tables.GET("/:id/session", h.GetSession)
			tables.PUT("/:id/session/status", h.UpdateSessionStatus)
			tables.POST("/:id/payment", h.InitiatePayment)

			tables.GET("/:id/cart", h.GetCart)
			tables.POST("/:id/cart", h.AddCartItem)
			tables.DELETE("/:id/cart", h.ClearCart)
			tables.DELETE("/:id/cart/:itemId", h.RemoveCartItem)
		}
		api.PUT("/payments/:id/status", h.UpdatePaymentStatus)

		api.GET("/settings", h.GetSettings)
		api.GET("/delivery-zones", h.ListZones)
		api.GET("/delivery/quote", h.DeliveryQuote)

		api.POST("/auth/login", h.Login)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		admin.PUT("/settings", h.UpdateSettings)
		admin.PUT("/delivery-zones", h.ReplaceZones)
	}

	if hub != nil {
		r.GET("/ws", gin.WrapH(hub))
	}

	return r, nil
}
