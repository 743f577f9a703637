package utils

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apiError "govbid/internal/errors"
)

var uuidPattern = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func GetPaginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	return page, pageSize
}

// ParseUUID accepts only the canonical hyphenated form. uuid.Parse alone
// would also take braces, urn: prefixes and the 32-digit form.
func ParseUUID(s string) (uuid.UUID, bool) {
	if !uuidPattern.MatchString(s) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}

// BidIDParam reads the :id path parameter.
func BidIDParam(c *gin.Context) (uuid.UUID, error) {
	id, ok := ParseUUID(c.Param("id"))
	if !ok {
		return uuid.Nil, apiError.BadRequest("Invalid bid ID", nil)
	}
	return id, nil
}

// UserID returns the authenticated caller set by the auth middleware.
func UserID(c *gin.Context) (uuid.UUID, error) {
	v, ok := c.Get("user_id")
	if !ok {
		return uuid.Nil, apiError.Unauthorized("Unauthorized", errors.New("user_id missing from context"))
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil, apiError.Unauthorized("Unauthorized", errors.New("user_id has unexpected type"))
	}
	return id, nil
}
