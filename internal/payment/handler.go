package payment

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"govbid/internal/errors"
	"govbid/internal/utils"
)

// maxWebhookBody bounds the raw event payload read for verification.
const maxWebhookBody = 1 << 20

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CheckoutRequestBody struct {
	BidID string `json:"bidId"`
}

func (h *Handler) Checkout(c *gin.Context) {
	userID, err := utils.UserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var body CheckoutRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errors.BadRequest("Invalid or missing bidId", err))
		return
	}
	bidID, ok := utils.ParseUUID(body.BidID)
	if !ok {
		c.Error(errors.BadRequest("Invalid or missing bidId", nil))
		return
	}

	session, err := h.service.CreateCheckout(c.Request.Context(), bidID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Webhook receives processor events; it is not behind the auth middleware.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.Error(errors.BadRequest("Could not read body", err))
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
