package rfp

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govbid/internal/upload"
	"govbid/internal/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Upload accepts a multipart "file", an "rfpUrl" form value, or both.
func (h *Handler) Upload(c *gin.Context) {
	userID, err := utils.UserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var file *upload.File
	if fh, err := c.FormFile("file"); err == nil {
		file = upload.FromMultipart(fh)
	}

	result, err := h.service.Ingest(c.Request.Context(), userID, file, c.PostForm("rfpUrl"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
