package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govbid/auth"
	"govbid/internal/errors"
	"govbid/internal/utils"
)

// Handler handles HTTP requests for the current user
type Handler struct {
	service Service
}

// NewHandler creates a new user handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetProfile handles getting the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID, err := utils.UserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	if profile == nil {
		c.JSON(http.StatusOK, gin.H{"id": userID})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProfile handles creating or updating the current user's profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, err := utils.UserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input map[string]any
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), userID, input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetNotifications handles getting the current user's notification preferences
func (h *Handler) GetNotifications(c *gin.Context) {
	userID, err := utils.UserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	prefs, err := h.service.GetNotificationPreferences(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdateNotifications handles saving the current user's notification preferences
func (h *Handler) UpdateNotifications(c *gin.Context) {
	userID, err := utils.UserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input NotificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	prefs, err := h.service.UpdateNotificationPreferences(c.Request.Context(), userID, input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// Logout handles revoking the access token used for this request
func (h *Handler) Logout(c *gin.Context) {
	claims, _ := c.Get("jwt_claims")
	typed, _ := claims.(*auth.Claims)

	if err := h.service.Logout(c.Request.Context(), typed); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
