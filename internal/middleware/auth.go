package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"govbid/auth"
	"govbid/internal/errors"
)

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Auth struct {
	Revocations RevocationChecker
}

func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		var token string
		tokenQuery := ctx.Query("token")

		if authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else if tokenQuery != "" {
			// EventSource cannot set headers
			token = tokenQuery
		} else {
			ctx.Error(errors.Unauthorized("Unauthorized", nil))
			ctx.Abort()
			return
		}

		claims, err := auth.VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Unauthorized", err))
			ctx.Abort()
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			ctx.Error(errors.Unauthorized("Unauthorized", err))
			ctx.Abort()
			return
		}

		if m.Revocations != nil {
			revoked, err := m.Revocations.IsRevoked(ctx.Request.Context(), claims.ID)
			if err != nil {
				ctx.Error(errors.Internal(err))
				ctx.Abort()
				return
			}
			if revoked {
				ctx.Error(errors.Unauthorized("Unauthorized", nil))
				ctx.Abort()
				return
			}
		}

		ctx.Set("user_id", userID)
		ctx.Set("jwt_token", token)
		ctx.Set("jwt_claims", claims)
		ctx.Next()
	}
}
