package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govbid/internal/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListJobs reports the pipeline progress of one bid.
func (h *Handler) ListJobs(c *gin.Context) {
	bidID, err := utils.BidIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}
	userID, err := utils.UserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), bidID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": jobs})
}
