package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/store"
	"github.com/offolaunch/launchtrack/internal/types"
)

const maxNotificationPage = 100

func (h *Handler) ListNotifications(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	limit, err := queryInt(ctx, "limit", 50)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	offset, err := queryInt(ctx, "offset", 0)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	if limit > maxNotificationPage {
		limit = maxNotificationPage
	}

	page, err := h.svc.Notifications.List(ctx.Request.Context(), user, store.NotificationFilter{
		Status: ctx.Query("status"),
		Type:   ctx.Query("type"),
		Limit:  limit,
		Offset: offset,
	})

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, page)
}

func (h *Handler) UnreadNotifications(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	count, err := h.svc.Notifications.UnreadCount(ctx.Request.Context(), user)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

func (h *Handler) MarkNotificationRead(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	notification, err := h.svc.Notifications.MarkRead(ctx.Request.Context(), user, ctx.Param("id"))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, notification)
}

func (h *Handler) MarkAllNotificationsRead(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	updated, err := h.svc.Notifications.MarkAllRead(ctx.Request.Context(), user)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

func (h *Handler) DeleteNotification(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	if err := h.svc.Notifications.Delete(ctx.Request.Context(), user, ctx.Param("id")); err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Notification deleted"})
}

func (h *Handler) DeleteReadNotifications(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	deleted, err := h.svc.Notifications.DeleteRead(ctx.Request.Context(), user)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Read notifications deleted", "deleted": deleted})
}

func queryInt(ctx *gin.Context, key string, fallback int) (int, error) {
	raw := ctx.Query(key)

	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)

	if err != nil || n < 0 {
		return 0, apperr.Validation("invalid "+key, apperr.FieldError{Field: key, Message: key + " must be a non-negative integer"})
	}

	return n, nil
}
