package handlers

import (
	"errors"

	"github.com/Krchnk/exchange-records/internal/auth"
	"github.com/Krchnk/exchange-records/internal/service"
	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const userContextKey = "user"

// AuthMiddleware resolves the bearer token and stores the user on the
// context.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := auth.ParseAuthorization(c.GetHeader("Authorization"))
		if !ok {
			logger.WithField("path", c.Request.URL.Path).Warn("missing or invalid Authorization header")
			respondError(c, service.NewError(service.ErrUnauthenticated, "authentication credentials were not provided"))
			return
		}

		user, err := h.tokens.Resolve(c.Request.Context(), key)
		if errors.Is(err, storages.ErrNotFound) {
			logger.WithField("path", c.Request.URL.Path).Warn("unknown token")
			respondError(c, service.NewError(service.ErrUnauthenticated, "invalid token"))
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(userContextKey, user)
		logger.WithField("user_id", user.ID).Debug("user authenticated")
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func (h *Handler) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if !user.IsAdmin() {
			logger.WithFields(logrus.Fields{
				"user_id": user.ID,
				"path":    c.Request.URL.Path,
			}).Warn("admin endpoint refused")
			respondError(c, service.NewError(service.ErrForbidden, "you do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) storages.User {
	if v, ok := c.Get(userContextKey); ok {
		if u, ok := v.(storages.User); ok {
			return u
		}
	}
	return storages.User{}
}
