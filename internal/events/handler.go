package events

import (
	"github.com/gin-gonic/gin"

	"govbid/internal/utils"
)

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Stream is the GET /events endpoint.
func (h *Handler) Stream(c *gin.Context) {
	userID, err := utils.UserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	client := h.hub.Register(userID)
	defer h.hub.Unregister(client)

	h.hub.Serve(c.Writer, c.Request, client)
}
