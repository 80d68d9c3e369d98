package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/models"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSessionConflict), errors.Is(err, models.ErrNoActiveSession):
		return http.StatusConflict
	case errors.Is(err, models.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrFairnessViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrSeedNotInitialized):
		return http.StatusPreconditionRequired
	case errors.Is(err, models.ErrDependencyTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	details := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		details = "internal error"
	}

	c.JSON(status, gin.H{
		"error":     models.ErrorKind(err),
		"details":   details,
		"retryable": models.Retryable(err),
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":     "ValidationError",
		"details":   err.Error(),
		"retryable": true,
	})
}
