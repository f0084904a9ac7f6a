package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/services"
	"github.com/offolaunch/launchtrack/internal/types"
)

func (h *Handler) Register(ctx *gin.Context) {
	var body services.RegisterInput

	if !h.bind(ctx, &body) {
		return
	}

	session, err := h.svc.Users.Register(ctx.Request.Context(), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, session)
}

func (h *Handler) Login(ctx *gin.Context) {
	var body services.LoginInput

	if !h.bind(ctx, &body) {
		return
	}

	session, err := h.svc.Users.Login(ctx.Request.Context(), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, session)
}

func (h *Handler) Me(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) UpdateProfile(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.ProfileInput

	if !h.bind(ctx, &body) {
		return
	}

	updated, err := h.svc.Users.UpdateProfile(ctx.Request.Context(), user, body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": updated})
}

func (h *Handler) ChangePassword(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.PasswordInput

	if !h.bind(ctx, &body) {
		return
	}

	if err := h.svc.Users.ChangePassword(ctx.Request.Context(), user, body); err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Password updated successfully"})
}
