package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/types"
)

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

func AuthMiddleware(users Authenticator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")

		if authHeader == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "Please authenticate"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)

		if len(parts) != 2 || parts[0] != "Bearer" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "Authorization header format must be Bearer {token}"})
			return
		}

		user, err := users.Authenticate(ctx.Request.Context(), strings.TrimSpace(parts[1]))

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "Please authenticate"})
			return
		}

		ctx.Set(types.ContextUserKey, user)
		ctx.Next()
	}
}
