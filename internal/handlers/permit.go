package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/services"
	"github.com/offolaunch/launchtrack/internal/store"
	"github.com/offolaunch/launchtrack/internal/types"
)

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func permitFilter(ctx *gin.Context) store.PermitFilter {
	return store.PermitFilter{
		Status:   ctx.Query("status"),
		Type:     ctx.Query("type"),
		Priority: ctx.Query("priority"),
	}
}

func (h *Handler) ListPermits(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	permits, err := h.svc.Permits.List(ctx.Request.Context(), user, permitFilter(ctx))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, permits)
}

func (h *Handler) ListProjectPermits(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	permits, err := h.svc.Permits.ListForProject(ctx.Request.Context(), user, ctx.Param("projectId"), permitFilter(ctx))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, permits)
}

func (h *Handler) CreatePermit(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.CreatePermitInput

	if !h.bind(ctx, &body) {
		return
	}

	permit, err := h.svc.Permits.Create(ctx.Request.Context(), user, body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, permit)
}

func (h *Handler) GetPermit(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	permit, err := h.svc.Permits.Get(ctx.Request.Context(), user, ctx.Param("id"))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, permit)
}

func (h *Handler) UpdatePermit(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.UpdatePermitInput

	if !h.bind(ctx, &body) {
		return
	}

	permit, err := h.svc.Permits.Update(ctx.Request.Context(), user, ctx.Param("id"), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, permit)
}

func (h *Handler) UpdatePermitStatus(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body StatusRequest

	if !h.bind(ctx, &body) {
		return
	}

	permit, err := h.svc.Permits.SetStatus(ctx.Request.Context(), user, ctx.Param("id"), body.Status)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, permit)
}

func (h *Handler) AddPermitDocument(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.DocumentInput

	if !h.bind(ctx, &body) {
		return
	}

	permit, err := h.svc.Permits.AddDocument(ctx.Request.Context(), user, ctx.Param("id"), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, permit)
}

func (h *Handler) SyncPermit(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	permit, err := h.svc.Sync.SyncPermitFor(ctx.Request.Context(), user, ctx.Param("id"))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Permit synced successfully", "permit": permit})
}

func (h *Handler) SubmitPermit(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	permit, err := h.svc.Sync.SubmitPermit(ctx.Request.Context(), user, ctx.Param("id"))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Permit submitted successfully", "permit": permit})
}

func (h *Handler) DeletePermit(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	if err := h.svc.Permits.Delete(ctx.Request.Context(), user, ctx.Param("id")); err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Permit deleted successfully"})
}
