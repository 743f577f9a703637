package bid

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govbid/internal/errors"
	"govbid/internal/upload"
	"govbid/internal/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
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

	bid, err := h.service.CreateBid(c.Request.Context(), userID, input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

func (h *Handler) List(c *gin.Context) {
	userID, err := utils.UserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	result, err := h.service.ListBids(c.Request.Context(), userID, filter, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Show(c *gin.Context) {
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

	bid, err := h.service.GetBid(c.Request.Context(), bidID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

func (h *Handler) Update(c *gin.Context) {
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

	var input map[string]any
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	bid, err := h.service.UpdateBid(c.Request.Context(), bidID, userID, input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

func (h *Handler) Delete(c *gin.Context) {
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

	if err := h.service.DeleteBid(c.Request.Context(), bidID, userID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListDocuments(c *gin.Context) {
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

	docs, err := h.service.ListDocuments(c.Request.Context(), bidID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, docs)
}

func (h *Handler) UploadDocument(c *gin.Context) {
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

	// a missing file is reported by the service after the ownership check
	var file *upload.File
	if fh, err := c.FormFile("file"); err == nil {
		file = upload.FromMultipart(fh)
	}

	doc, err := h.service.UploadDocument(c.Request.Context(), bidID, userID, c.PostForm("docType"), file)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}
