package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionCounter reports the number of open batch sessions.
type SessionCounter interface {
	Len() int
}

// HandleHealth reports liveness and the number of open sessions.
// GET /healthz
func HandleHealth(sessions SessionCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"activeSessions": sessions.Len(),
		})
	}
}
