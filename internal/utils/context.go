package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/types"
)

func GetCurrentUser(ctx *gin.Context) (*models.User, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return nil, fmt.Errorf("user not authenticated")
	}

	authenticatedUser, ok := user.(*models.User)

	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return authenticatedUser, nil
}

func GetCurrentUserID(ctx *gin.Context) (string, error) {
	user, err := GetCurrentUser(ctx)

	if err != nil {
		return "", err
	}

	return user.ID, nil
}

func GetRequestID(ctx *gin.Context) string {
	return ctx.GetString(types.ContextRequestIDKey)
}
