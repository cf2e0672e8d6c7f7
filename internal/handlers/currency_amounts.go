package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *Handler) ListCurrencyAmounts(c *gin.Context) {
	list, err := h.svc.ListCurrencyAmounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCurrencyAmounts(list))
}

func (h *Handler) CreateCurrencyAmount(c *gin.Context) {
	var req currencyAmountRequest
	if !bindJSON(c, &req) {
		return
	}

	user := currentUser(c)
	row, err := h.svc.CreateCurrencyAmount(c.Request.Context(), user, req.CurrencyID, req.Amount)
	if err != nil {
		logger.WithField("user_id", user.ID).WithError(err).Warn("currency amount creation failed")
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"currency_id": row.CurrencyID,
		"amount":      row.Amount.StringFixed(2),
	}).Info("currency amount created")
	c.JSON(http.StatusCreated, toCurrencyAmount(row))
}

func (h *Handler) GetCurrencyAmount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	row, err := h.svc.GetCurrencyAmount(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCurrencyAmount(row))
}

func (h *Handler) UpdateCurrencyAmount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req currencyAmountRequest
	if !bindJSON(c, &req) {
		return
	}

	row, err := h.svc.UpdateCurrencyAmount(c.Request.Context(), id, req.Amount, isPartial(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCurrencyAmount(row))
}

func (h *Handler) DeleteCurrencyAmount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteCurrencyAmount(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
