package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ResetDatabase(c *gin.Context) {
	summary, err := h.svc.ResetDatabase(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithField("admin_id", currentUser(c).ID).Warn("database reset")
	c.JSON(http.StatusOK, gin.H{
		"message":    "Database reset successfully",
		"operations": summary.Operations,
		"currencies": summary.Currencies,
		"users":      summary.Users,
	})
}
