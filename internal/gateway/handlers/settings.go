package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fz-restaurant/internal/geo"
	"fz-restaurant/internal/settings"
	"fz-restaurant/internal/utils"
)

type ReplaceZonesRequest struct {
	Zones []settings.ZoneInput `json:"zones" binding:"required"`
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *RestaurantHTTPHandler) GetSettings(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	current, err := h.settings.Settings(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"settings": current}))
}

func (h *RestaurantHTTPHandler) UpdateSettings(c *gin.Context) {
	var req settings.Update
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	updated, err := h.settings.UpdateSettings(ctx, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"settings": updated}))
}

func (h *RestaurantHTTPHandler) ListZones(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	zones, err := h.settings.Zones(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"zones": zones}))
}

func (h *RestaurantHTTPHandler) ReplaceZones(c *gin.Context) {
	var req ReplaceZonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	zones, err := h.settings.ReplaceZones(ctx, req.Zones)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"zones": zones}))
}

// DeliveryQuote accepts lat, lng and an optional subtotal. Without
// coordinates it returns the zero-fee quote.
func (h *RestaurantHTTPHandler) DeliveryQuote(c *gin.Context) {
	latRaw, lngRaw := c.Query("lat"), c.Query("lng")

	var dest *geo.Point
	if latRaw != "" || lngRaw != "" {
		lat, errLat := strconv.ParseFloat(latRaw, 64)
		lng, errLng := strconv.ParseFloat(lngRaw, 64)
		if errLat != nil || errLng != nil {
			badRequest(c, "lat and lng must both be numbers")
			return
		}
		dest = &geo.Point{Lat: lat, Lng: lng}
	}

	var subtotal *decimal.Decimal
	if raw := c.Query("subtotal"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			badRequest(c, "subtotal must be a number")
			return
		}
		subtotal = &v
	}

	ctx, cancel := h.context(c)
	defer cancel()

	quote, err := h.settings.Quote(ctx, dest, subtotal)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"quote": quote}))
}

// Login trades the shared admin password for a bearer token.
func (h *RestaurantHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	if !h.orders.CheckAdminPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, errorResponse("Incorrect password", "UNAUTHORIZED"))
		return
	}

	token, exp, err := utils.GenerateToken(h.opts.JWTSecret, "admin", utils.RoleAdmin, h.opts.TokenTTL)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{
		"message":    "Login successful",
		"token":      token,
		"expires_at": exp,
	}))
}
