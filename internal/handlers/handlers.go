package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/Krchnk/exchange-records/internal/service"
	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

type TokenResolver interface {
	Resolve(ctx context.Context, key string) (storages.User, error)
}

type Handler struct {
	svc    *service.Service
	tokens TokenResolver
}

func NewHandler(svc *service.Service, tokens TokenResolver) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

// RegisterRoutes mounts every endpoint on r. Only /token/ and /healthz are
// reachable without a token.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", h.Health)
	r.POST("/token/", h.ObtainToken)

	api := r.Group("", h.AuthMiddleware())
	admin := h.AdminOnly()
	{
		api.GET("/currencies/", h.ListCurrencies)
		api.POST("/currencies/", h.CreateCurrency)
		api.GET("/currencies/names/", h.CurrencyNames)
		api.DELETE("/currencies/delete_currencies/", admin, h.DeleteAllCurrencies)
		api.GET("/currencies/:id/", h.GetCurrency)
		api.PUT("/currencies/:id/", h.UpdateCurrency)
		api.PATCH("/currencies/:id/", h.UpdateCurrency)
		api.DELETE("/currencies/:id/", h.DeleteCurrency)

		api.GET("/currency-amounts/", h.ListCurrencyAmounts)
		api.POST("/currency-amounts/", h.CreateCurrencyAmount)
		api.GET("/currency-amounts/:id/", h.GetCurrencyAmount)
		api.PUT("/currency-amounts/:id/", h.UpdateCurrencyAmount)
		api.PATCH("/currency-amounts/:id/", h.UpdateCurrencyAmount)
		api.DELETE("/currency-amounts/:id/", h.DeleteCurrencyAmount)

		api.GET("/operations/", h.ListOperations)
		api.POST("/operations/", h.CreateOperation)
		api.GET("/operations/by_user/", h.OperationsByUser)
		api.GET("/operations/by_date/", h.OperationsByDate)
		api.GET("/operations/get_user_operations/", h.UserOperations)
		api.DELETE("/operations/delete_db/", admin, h.DeleteAllOperations)
		api.GET("/operations/:id/", h.GetOperation)
		api.PUT("/operations/:id/", h.UpdateOperation)
		api.PATCH("/operations/:id/", h.UpdateOperation)
		api.DELETE("/operations/:id/", h.DeleteOperation)

		api.GET("/users/", h.ListUsers)
		api.POST("/users/", h.Signup)
		api.POST("/users/add_user/", admin, h.AddUser)
		api.GET("/users/:id/get_user/", h.GetUser)
		api.POST("/users/:id/change_password/", admin, h.ChangePassword)
		api.DELETE("/users/:id/remove_user/", admin, h.RemoveUser)

		api.DELETE("/reset-database/", admin, h.ResetDatabase)
	}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		logger.WithError(err).Error("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrBadRequest),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": msg}. Unexpected errors are logged and
// replaced with a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).WithError(err).Error("unexpected failure")
		_ = c.Error(err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// bindJSON decodes the request body into dst, answering 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.WithField("path", c.FullPath()).WithError(err).Warn("failed to bind request")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// pathID parses the :id segment. A non-numeric id cannot match any row.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, service.NewError(service.ErrNotFound, "%q is not a valid id", c.Param("id")))
		return 0, false
	}
	return id, true
}

func isPartial(c *gin.Context) bool {
	return c.Request.Method == http.MethodPatch
}
