package handlers

import (
	"fmt"
	"net/http"

	"github.com/Krchnk/exchange-records/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *Handler) ListCurrencies(c *gin.Context) {
	list, err := h.svc.ListCurrencies(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCurrencies(list))
}

// CurrencyNames serves the {id, code} projection.
func (h *Handler) CurrencyNames(c *gin.Context) {
	h.ListCurrencies(c)
}

func (h *Handler) CreateCurrency(c *gin.Context) {
	var req currencyRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Code == nil {
		respondError(c, service.NewError(service.ErrBadRequest, "code: this field is required"))
		return
	}

	currency, err := h.svc.CreateCurrency(c.Request.Context(), *req.Code)
	if err != nil {
		logger.WithField("code", *req.Code).WithError(err).Warn("currency creation failed")
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"currency_id": currency.ID,
		"code":        currency.Code,
	}).Info("currency created")
	c.JSON(http.StatusCreated, toCurrency(currency))
}

func (h *Handler) GetCurrency(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	currency, err := h.svc.GetCurrency(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCurrency(currency))
}

func (h *Handler) UpdateCurrency(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req currencyRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Code == nil {
		if !isPartial(c) {
			respondError(c, service.NewError(service.ErrBadRequest, "code: this field is required"))
			return
		}
		h.GetCurrency(c)
		return
	}

	currency, err := h.svc.UpdateCurrency(c.Request.Context(), id, *req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCurrency(currency))
}

func (h *Handler) DeleteCurrency(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteCurrency(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	logger.WithField("currency_id", id).Info("currency deleted")
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteAllCurrencies(c *gin.Context) {
	n, err := h.svc.BulkDeleteCurrencies(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"user_id": currentUser(c).ID,
		"count":   n,
	}).Info("currencies bulk deleted")
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Successfully deleted %d currencies", n),
		"count":   n,
	})
}
