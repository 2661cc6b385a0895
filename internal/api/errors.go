package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storytopia-server/internal/models"
)

// handleServiceError maps service-layer sentinel errors onto HTTP responses.
// Anything unrecognized is a 500 with the detail kept out of the body.
func handleServiceError(c *gin.Context, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrStoryPrivate),
		errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFollowing),
		errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("Unhandled service error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
