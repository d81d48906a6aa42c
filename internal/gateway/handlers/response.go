package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"fz-restaurant/internal/apperr"
	"fz-restaurant/internal/repository"
)

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func errorResponse(message, code string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Error:   code,
	}
}

// ok merges fields into a success envelope.
func ok(fields gin.H) gin.H {
	out := gin.H{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse(message, "VALIDATION_ERROR"))
}

// handleServiceError maps the apperr taxonomy onto HTTP statuses. Anything
// unclassified is logged and reported as a generic 500.
func handleServiceError(c *gin.Context, err error) {
	code := apperr.Code(err)
	switch {
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error(), code))
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error(), code))
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(conflictMessage(c, err), code))
	case errors.Is(err, apperr.ErrUnauthorized):
		c.JSON(http.StatusForbidden, errorResponse(err.Error(), code))
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, errorResponse("Internal server error", code))
	}
	c.Abort()
}

// conflictMessage hides driver text carried by unique-key violations.
func conflictMessage(c *gin.Context, err error) string {
	if !repository.IsDuplicate(err) {
		return err.Error()
	}
	log.WithError(err).WithField("path", c.Request.URL.Path).Warn("Unique constraint violation")
	if errors.Is(err, apperr.ErrTableOccupied) {
		return apperr.ErrTableOccupied.Error()
	}
	return "conflict: resource was modified concurrently, please retry"
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func tableParam(c *gin.Context, name string) (int, bool) {
	id, valid := idParam(c, name)
	return int(id), valid
}
