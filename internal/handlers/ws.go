package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/middleware"
	"github.com/offolaunch/launchtrack/internal/realtime"
)

// WebSocket hands the upgrade to the hub, which authenticates the
// handshake itself because browsers cannot always send headers.
func WebSocket(hub *realtime.Hub) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		hub.ServeWS(ctx.Writer, ctx.Request)
	}
}

// HubAuthenticator verifies the handshake bearer token against active users.
func HubAuthenticator(users middleware.Authenticator) realtime.Authenticator {
	return func(r *http.Request) (realtime.Identity, error) {
		user, err := users.Authenticate(r.Context(), realtime.TokenFromRequest(r))

		if err != nil {
			return realtime.Identity{}, err
		}

		return realtime.Identity{ID: user.ID, Name: user.Name, Avatar: user.Avatar}, nil
	}
}
