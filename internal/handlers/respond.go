package handlers

import (
	"log/slog"
	"net/http"

	"chapacerto/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// fail maps typed service errors to HTTP statuses. Unknown errors become
// opaque 500s; the detail goes to the log, not the client.
func fail(c *gin.Context, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperrors.KindFilter:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case apperrors.KindPayment:
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	default:
		slog.Error("unhandled error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
