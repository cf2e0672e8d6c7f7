package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ObtainToken(c *gin.Context) {
	var req tokenRequest
	if !bindJSON(c, &req) {
		return
	}

	logger.WithField("username", req.Username).Info("token request")
	grant, err := h.svc.IssueToken(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logger.WithField("username", req.Username).WithError(err).Warn("token request refused")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		Token:       grant.Token,
		UserID:      grant.User.ID,
		Username:    grant.User.Username,
		IsStaff:     grant.User.IsStaff,
		IsSuperuser: grant.User.IsSuperuser,
	})
}
