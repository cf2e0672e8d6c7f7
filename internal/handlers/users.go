package handlers

import (
	"fmt"
	"net/http"

	"github.com/Krchnk/exchange-records/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}

	logger.WithField("username", req.Username).Info("signup attempt")
	user, err := h.svc.Signup(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUser(user))
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(user))
}

func (h *Handler) AddUser(c *gin.Context) {
	var req addUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.svc.AddUser(c.Request.Context(), service.NewUser{
		Username:    req.Username,
		Password:    req.Password,
		IsStaff:     req.IsStaff,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		logger.WithField("username", req.Username).WithError(err).Warn("add user failed")
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"admin_id":     currentUser(c).ID,
		"user_id":      user.ID,
		"is_staff":     user.IsStaff,
		"is_superuser": user.IsSuperuser,
	}).Info("user added")
	c.JSON(http.StatusCreated, gin.H{
		"message":  fmt.Sprintf("User '%s' created successfully", user.Username),
		"username": user.Username,
	})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.svc.ChangePassword(c.Request.Context(), id, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"admin_id": currentUser(c).ID,
		"user_id":  user.ID,
	}).Info("password changed")
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Password changed successfully for user '%s'", user.Username),
	})
}

func (h *Handler) RemoveUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.svc.RemoveUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"admin_id": currentUser(c).ID,
		"user_id":  user.ID,
	}).Info("user removed")
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("User '%s' has been deleted successfully", user.Username),
		"username": user.Username,
	})
}
