package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apiError "govbid/internal/errors"
	"govbid/internal/logger"
)

func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *apiError.APIError
		if !errors.As(err, &apiErr) {
			// Raw errors never leak their text to the caller
			apiErr = apiError.Internal(err)
		}

		if apiErr.Status >= 500 {
			log.Error("request failed", "path", c.Request.URL.Path, "error", apiErr.Internal)
		} else {
			log.Info(apiErr.Message, "path", c.Request.URL.Path, "error", apiErr.Internal)
		}

		c.AbortWithStatusJSON(apiErr.Status, apiErr)
	}
}
