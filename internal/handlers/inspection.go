package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/services"
	"github.com/offolaunch/launchtrack/internal/types"
)

func (h *Handler) UpcomingInspections(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	inspections, err := h.svc.Inspections.Upcoming(ctx.Request.Context(), user)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, inspections)
}

func (h *Handler) ListPermitInspections(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	inspections, err := h.svc.Inspections.ListForPermit(ctx.Request.Context(), user, ctx.Param("permitId"))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, inspections)
}

func (h *Handler) CreateInspection(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.CreateInspectionInput

	if !h.bind(ctx, &body) {
		return
	}

	inspection, err := h.svc.Inspections.Create(ctx.Request.Context(), user, body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, inspection)
}

func (h *Handler) GetInspection(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	inspection, err := h.svc.Inspections.Get(ctx.Request.Context(), user, ctx.Param("id"))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, inspection)
}

func (h *Handler) UpdateInspection(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.UpdateInspectionInput

	if !h.bind(ctx, &body) {
		return
	}

	inspection, err := h.svc.Inspections.Update(ctx.Request.Context(), user, ctx.Param("id"), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, inspection)
}

func (h *Handler) UpdateInspectionStatus(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body StatusRequest

	if !h.bind(ctx, &body) {
		return
	}

	inspection, err := h.svc.Inspections.SetStatus(ctx.Request.Context(), user, ctx.Param("id"), body.Status)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, inspection)
}

func (h *Handler) SaveChecklistItem(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.ChecklistInput

	if !h.bind(ctx, &body) {
		return
	}

	inspection, err := h.svc.Inspections.SaveChecklistItem(ctx.Request.Context(), user, ctx.Param("id"), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, inspection)
}

func (h *Handler) AddFinding(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.FindingInput

	if !h.bind(ctx, &body) {
		return
	}

	inspection, err := h.svc.Inspections.AddFinding(ctx.Request.Context(), user, ctx.Param("id"), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, inspection)
}

func (h *Handler) UpdateFinding(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.FindingUpdate

	if !h.bind(ctx, &body) {
		return
	}

	inspection, err := h.svc.Inspections.UpdateFinding(ctx.Request.Context(), user, ctx.Param("id"), ctx.Param("findingId"), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, inspection)
}

func (h *Handler) AddAttendee(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	var body services.AttendeeInput

	if !h.bind(ctx, &body) {
		return
	}

	inspection, err := h.svc.Inspections.AddAttendee(ctx.Request.Context(), user, ctx.Param("id"), body)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, inspection)
}

// ScheduleExternalInspection books the inspection with the permit's agency.
func (h *Handler) ScheduleExternalInspection(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	inspection, err := h.svc.Sync.ScheduleInspection(ctx.Request.Context(), user, ctx.Param("id"))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, inspection)
}

func (h *Handler) DeleteInspection(ctx *gin.Context) {
	user, ok := h.user(ctx)

	if !ok {
		return
	}

	if err := h.svc.Inspections.Delete(ctx.Request.Context(), user, ctx.Param("id")); err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Inspection deleted successfully"})
}
