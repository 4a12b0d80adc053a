package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SixtySecondsApp/onboarding-forms/dashboard"
	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/store"
	"github.com/SixtySecondsApp/onboarding-forms/wizard"
)

// respondError maps domain errors onto status codes. Anything unknown is a
// 500 and is attached to the context for the error middleware.
func respondError(c *gin.Context, err error) {
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "step": verr.Step, "fields": verr.Fields})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
	case errors.Is(err, dashboard.ErrInvalidInput), errors.Is(err, store.ErrUnknownSection):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, dashboard.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "this form is no longer accepting responses"})
	case errors.Is(err, store.ErrPasswordRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "password required", "password_required": true})
	case errors.Is(err, store.ErrPasswordIncorrect):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect password", "password_required": true})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
