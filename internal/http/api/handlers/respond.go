package handlers

import (
	"net/http"

	"github.com/abigailajohn/VVMA/internal/apperr"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondError translates a service error into a JSON response. Unclassified
// errors are logged and surface as an opaque 500.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
