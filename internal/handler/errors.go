package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/moodshop-api/internal/checkout"
	"github.com/flicky/moodshop-api/internal/logging"
	"github.com/flicky/moodshop-api/internal/service"
)

// respondError maps service errors onto status codes. Anything unexpected
// is logged and reported as a 500 without details.
func respondError(c *gin.Context, err error) {
	var (
		verr *checkout.ValidationError
		perr *service.PaymentError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.As(err, &perr):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment failed", "reason": perr.Reason})
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidMood),
		errors.Is(err, service.ErrInvalidCategory):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusConflict, gin.H{"error": "cart is empty", "redirect": "/cart"})
	case errors.Is(err, service.ErrSubmissionInProgress),
		errors.Is(err, checkout.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrNoSubmission):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOrderAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	default:
		_ = c.Error(err)
		logging.FromContext(c.Request.Context()).Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
