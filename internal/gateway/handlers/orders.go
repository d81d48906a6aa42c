package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fz-restaurant/internal/database/models"
	"fz-restaurant/internal/ordering"
	"fz-restaurant/internal/repository"
)

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

type DeleteOrderRequest struct {
	Password string `json:"password"`
}

type ListOrdersQuery struct {
	Status    string `form:"status"`
	OrderType string `form:"orderType"`
	TableID   string `form:"tableId"`
}

type HistoryQuery struct {
	CustomerPhone string `form:"customerPhone"`
	StartDate     string `form:"startDate"`
	EndDate       string `form:"endDate"`
}

func (h *RestaurantHTTPHandler) CreateOrder(c *gin.Context) {
	var req ordering.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	order, err := h.orders.CreateOrder(ctx, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ok(gin.H{
		"message": "Order placed successfully",
		"order":   order,
	}))
}

func (h *RestaurantHTTPHandler) ListOrders(c *gin.Context) {
	var q ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters")
		return
	}

	var filter repository.OrderFilter
	if q.Status != "" {
		status := models.OrderStatus(q.Status)
		if !status.Valid() {
			badRequest(c, "Unknown status "+q.Status)
			return
		}
		filter.Status = &status
	}
	if q.OrderType != "" {
		orderType := models.OrderType(q.OrderType)
		if !orderType.Valid() {
			badRequest(c, "Unknown orderType "+q.OrderType)
			return
		}
		filter.OrderType = &orderType
	}
	if q.TableID != "" {
		tableID, err := strconv.Atoi(q.TableID)
		if err != nil {
			badRequest(c, "Invalid tableId")
			return
		}
		filter.TableID = &tableID
	}

	ctx, cancel := h.context(c)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"orders": orders}))
}

func (h *RestaurantHTTPHandler) GetOrder(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	order, err := h.orders.Order(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"order": order}))
}

func (h *RestaurantHTTPHandler) UpdateOrderStatus(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	order, err := h.orders.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{
		"message": "Order status updated",
		"order":   order,
	}))
}

// DeleteOrder takes the admin password from the JSON body or the
// X-Admin-Password header.
func (h *RestaurantHTTPHandler) DeleteOrder(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}

	var req DeleteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request format")
		return
	}
	if req.Password == "" {
		req.Password = c.GetHeader("X-Admin-Password")
	}

	ctx, cancel := h.context(c)
	defer cancel()

	deleted, err := h.orders.DeleteOrder(ctx, id, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{
		"message":      "Order deleted",
		"deletedOrder": deleted,
	}))
}

func (h *RestaurantHTTPHandler) OrderHistory(c *gin.Context) {
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters")
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	orders, err := h.orders.History(ctx, ordering.HistoryQuery{
		CustomerPhone: q.CustomerPhone,
		StartDate:     q.StartDate,
		EndDate:       q.EndDate,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"orders": orders}))
}

func (h *RestaurantHTTPHandler) GetCustomer(c *gin.Context) {
	phone := c.Param("phone")

	ctx, cancel := h.context(c)
	defer cancel()

	customer, err := h.orders.Customer(ctx, phone)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"customer": customer}))
}
