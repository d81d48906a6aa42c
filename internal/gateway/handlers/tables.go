package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fz-restaurant/internal/cart"
	"fz-restaurant/internal/database/models"
)

type CreateSessionRequest struct {
	CustomerName string `json:"customerName" binding:"required"`
	Phone        string `json:"phone" binding:"omitempty,max=32"`
}

type UpdateSessionStatusRequest struct {
	Status      models.SessionStatus `json:"status" binding:"required"`
	TotalAmount *decimal.Decimal     `json:"totalAmount,omitempty"`
}

type InitiatePaymentRequest struct {
	PaymentMethod string           `json:"paymentMethod" binding:"required"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
}

type UpdatePaymentStatusRequest struct {
	Status          models.PaymentStatus `json:"status" binding:"required"`
	GatewayResponse json.RawMessage      `json:"gatewayResponse,omitempty"`
}

func (h *RestaurantHTTPHandler) ClearTable(c *gin.Context) {
	tableID, valid := tableParam(c, "tableId")
	if !valid {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	result, err := h.tables.ClearTable(ctx, tableID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{
		"message":        "Table cleared",
		"movedToHistory": result.MovedToHistory,
	}))
}

func (h *RestaurantHTTPHandler) ListTables(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	statuses, err := h.tables.AllTableStatuses(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"tables": statuses}))
}

func (h *RestaurantHTTPHandler) CreateSession(c *gin.Context) {
	tableID, valid := tableParam(c, "id")
	if !valid {
		return
	}
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	session, err := h.tables.CreateSession(ctx, tableID, req.CustomerName, req.Phone)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ok(gin.H{"session": session}))
}

func (h *RestaurantHTTPHandler) GetSession(c *gin.Context) {
	tableID, valid := tableParam(c, "id")
	if !valid {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	session, orders, err := h.tables.Session(ctx, tableID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"session": session, "orders": orders}))
}

func (h *RestaurantHTTPHandler) UpdateSessionStatus(c *gin.Context) {
	tableID, valid := tableParam(c, "id")
	if !valid {
		return
	}
	var req UpdateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	session, err := h.tables.UpdateStatus(ctx, tableID, req.Status, req.TotalAmount)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"session": session}))
}

func (h *RestaurantHTTPHandler) InitiatePayment(c *gin.Context) {
	tableID, valid := tableParam(c, "id")
	if !valid {
		return
	}
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	payment, err := h.tables.InitiatePayment(ctx, tableID, req.PaymentMethod, req.Amount)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ok(gin.H{"payment": payment}))
}

func (h *RestaurantHTTPHandler) UpdatePaymentStatus(c *gin.Context) {
	paymentID, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	payment, err := h.tables.UpdatePaymentStatus(ctx, paymentID, req.Status, req.GatewayResponse)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"payment": payment}))
}

// --- Cart drafts ---

func (h *RestaurantHTTPHandler) GetCart(c *gin.Context) {
	tableID, valid := tableParam(c, "id")
	if !valid {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	draft, err := h.carts.Get(ctx, tableID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"cart": draft}))
}

func (h *RestaurantHTTPHandler) AddCartItem(c *gin.Context) {
	tableID, valid := tableParam(c, "id")
	if !valid {
		return
	}
	var item cart.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	draft, err := h.carts.AddItem(ctx, tableID, item)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"cart": draft}))
}

func (h *RestaurantHTTPHandler) RemoveCartItem(c *gin.Context) {
	tableID, valid := tableParam(c, "id")
	if !valid {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	draft, err := h.carts.RemoveItem(ctx, tableID, c.Param("itemId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"cart": draft}))
}

func (h *RestaurantHTTPHandler) ClearCart(c *gin.Context) {
	tableID, valid := tableParam(c, "id")
	if !valid {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.carts.Clear(ctx, tableID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"message": "Cart cleared"}))
}
