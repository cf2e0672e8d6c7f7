package handlers

import (
	"fmt"
	"net/http"

	"github.com/Krchnk/exchange-records/internal/service"
	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// input ignores any client supplied date.
func (r operationRequest) input() service.OperationInput {
	in := service.OperationInput{
		UserID:       r.User,
		CurrencyID:   r.Currency,
		Amount:       r.Amount,
		ExchangeRate: r.ExchangeRate,
		Description:  r.Description,
	}
	if r.OperationType != nil {
		t := storages.OperationType(*r.OperationType)
		in.Type = &t
	}
	return in
}

func (h *Handler) ListOperations(c *gin.Context) {
	ops, err := h.svc.ListOperations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOperations(ops))
}

func (h *Handler) CreateOperation(c *gin.Context) {
	var req operationRequest
	if !bindJSON(c, &req) {
		return
	}

	user := currentUser(c)
	op, err := h.svc.CreateOperation(c.Request.Context(), user, req.input())
	if err != nil {
		logger.WithField("user_id", user.ID).WithError(err).Warn("operation creation failed")
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"operation_id": op.ID,
		"user_id":      op.UserID,
		"type":         op.Type,
	}).Info("operation created")
	c.JSON(http.StatusCreated, toOperation(op))
}

func (h *Handler) GetOperation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	op, err := h.svc.GetOperation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOperation(op))
}

func (h *Handler) UpdateOperation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req operationRequest
	if !bindJSON(c, &req) {
		return
	}

	op, err := h.svc.UpdateOperation(c.Request.Context(), id, req.input(), isPartial(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOperation(op))
}

func (h *Handler) DeleteOperation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteOperation(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) OperationsByUser(c *gin.Context) {
	ops, err := h.svc.OperationsByUser(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOperations(ops))
}

func (h *Handler) OperationsByDate(c *gin.Context) {
	ops, err := h.svc.OperationsByDate(c.Request.Context(), c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOperations(ops))
}

func (h *Handler) UserOperations(c *gin.Context) {
	ops, err := h.svc.UserOperations(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOperations(ops))
}

func (h *Handler) DeleteAllOperations(c *gin.Context) {
	n, err := h.svc.BulkDeleteOperations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"user_id": currentUser(c).ID,
		"count":   n,
	}).Info("operations bulk deleted")
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Successfully deleted %d operations", n),
		"count":   n,
	})
}
